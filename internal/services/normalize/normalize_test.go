package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleGenderNotation(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Senior Developer (m/w/d)", "senior developer"},
		{"Senior Developer m/w/d", "senior developer"},
		{"Projektleiter (f/d/m)", "projektleiter"},
		{"Product Owner (all genders)", "product owner"},
		{"DevOps Engineer (gn)", "devops engineer"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Title(c.in), "input %q", c.in)
	}
}

func TestTitleParensAndBareGenderCollapse(t *testing.T) {
	// the canonical equality from the dedup contract
	assert.Equal(t, Title("Senior Developer (m/w/d)"), Title("Senior Developer m/w/d"))
}

func TestTitleBoardSuffixes(t *testing.T) {
	assert.Equal(t, "buchhalter", Title("Buchhalter – Stellenanzeige"))
	assert.Equal(t, "frontend engineer", Title("Frontend Engineer | Apply now"))
}

func TestTitleSalaryAppendix(t *testing.T) {
	assert.Equal(t, "telefonist", Title("Telefonisten – Vollzeit: 30.000–40.000 Euro Jahresgehalt."))
}

func TestTitleGermanPlural(t *testing.T) {
	assert.Equal(t, Title("Mitarbeiter Vertrieb"), Title("Mitarbeiterin Vertrieb"))
}

func TestTitleStable(t *testing.T) {
	inputs := []string{
		"Senior Developer (m/w/d)",
		"Buchhalter – Stellenanzeige",
		"  Werkstudent   IT  m/w/d ",
		"Telefonisten – Vollzeit: 30.000–40.000 Euro Jahresgehalt.",
	}
	for _, in := range inputs {
		once := Title(in)
		assert.Equal(t, once, Title(once), "not stable for %q", in)
	}
}

func TestLocation(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Berlin, Deutschland", "berlin"},
		{"München, Germany", "münchen"},
		{"Hamburg Vollzeit", "hamburg"},
		{"Wien, Österreich, Remote", "wien"},
		{"Köln (inkl. Home Office)", "köln"},
		{"Remote", ""},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Location(c.in), "input %q", c.in)
	}
}

func TestLocationStable(t *testing.T) {
	for _, in := range []string{"Berlin, Deutschland", "Hamburg Vollzeit", "Wien, Österreich"} {
		once := Location(in)
		assert.Equal(t, once, Location(once))
	}
}

func TestIsNonJob(t *testing.T) {
	assert.True(t, IsNonJob("Initiativbewerbung (m/w/d)"))
	assert.True(t, IsNonJob("Open Application"))
	assert.True(t, IsNonJob("Spontanbewerbung"))
	assert.True(t, IsNonJob("Join our Talent Pool"))
	assert.False(t, IsNonJob("Software Engineer"))
	assert.False(t, IsNonJob("Application Engineer")) // "application" alone is a real role
}

func TestIsCompanyName(t *testing.T) {
	assert.True(t, IsCompanyName("Example Software GmbH"))
	assert.True(t, IsCompanyName("Acme Limited"))
	assert.False(t, IsCompanyName("Limited Edition Designer"))
	assert.False(t, IsCompanyName("Sales Manager"))
}
