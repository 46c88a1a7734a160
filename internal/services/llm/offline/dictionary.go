// Package offline provides the dictionary fallback for job-title
// translation, used when the LLM translation call fails or returns
// garbage. Rules are morpheme substitutions, so compound German titles
// translate partially rather than not at all.
package offline

import (
	"fmt"
	"regexp"
	"strings"
)

// rules are German→English morpheme substitutions, compiled once,
// case-insensitive, word-boundary-anchored on the German side. Longer
// morphemes come first so compounds win over their parts.
var rules = []struct {
	de string
	en string
}{
	{"softwareentwickler", "software developer"},
	{"anwendungsentwickler", "application developer"},
	{"fachinformatiker", "IT specialist"},
	{"wirtschaftsinformatiker", "business IT specialist"},
	{"vertriebsmitarbeiter", "sales employee"},
	{"kundenbetreuer", "account manager"},
	{"personalreferent", "HR officer"},
	{"geschäftsführung", "management"},
	{"geschäftsführer", "managing director"},
	{"stellenangebot", "job offer"},
	{"stellenangebote", "job offers"},
	{"bauleiter", "construction manager"},
	{"projektleiter", "project manager"},
	{"projektmanager", "project manager"},
	{"teamleiter", "team lead"},
	{"abteilungsleiter", "department head"},
	{"niederlassungsleiter", "branch manager"},
	{"buchhalter", "accountant"},
	{"lohnbuchhalter", "payroll accountant"},
	{"steuerberater", "tax consultant"},
	{"steuerfachangestellte", "tax clerk"},
	{"rechtsanwalt", "lawyer"},
	{"entwickler", "developer"},
	{"berater", "consultant"},
	{"verkäufer", "salesperson"},
	{"einkäufer", "buyer"},
	{"ingenieur", "engineer"},
	{"techniker", "technician"},
	{"mechatroniker", "mechatronics technician"},
	{"elektroniker", "electronics technician"},
	{"elektriker", "electrician"},
	{"mechaniker", "mechanic"},
	{"schlosser", "metalworker"},
	{"schreiner", "carpenter"},
	{"tischler", "carpenter"},
	{"maler", "painter"},
	{"lagerist", "warehouse worker"},
	{"fahrer", "driver"},
	{"kraftfahrer", "truck driver"},
	{"berufskraftfahrer", "professional driver"},
	{"pflegekraft", "care worker"},
	{"pflegefachkraft", "nursing professional"},
	{"krankenschwester", "nurse"},
	{"erzieher", "educator"},
	{"koch", "cook"},
	{"küchenhilfe", "kitchen assistant"},
	{"reinigungskraft", "cleaner"},
	{"empfangsmitarbeiter", "receptionist"},
	{"sachbearbeiter", "clerk"},
	{"sekretär", "secretary"},
	{"assistenz", "assistant"},
	{"assistent", "assistant"},
	{"mitarbeiter", "employee"},
	{"fachkraft", "specialist"},
	{"aushilfe", "temporary help"},
	{"auszubildende", "apprentice"},
	{"auszubildender", "apprentice"},
	{"ausbildung", "apprenticeship"},
	{"werkstudent", "working student"},
	{"praktikant", "intern"},
	{"praktikum", "internship"},
	{"vollzeit", "full-time"},
	{"teilzeit", "part-time"},
	{"festanstellung", "permanent position"},
	{"befristet", "fixed-term"},
	{"unbefristet", "permanent"},
	{"vertrieb", "sales"},
	{"einkauf", "purchasing"},
	{"verwaltung", "administration"},
	{"buchhaltung", "accounting"},
	{"personalwesen", "human resources"},
	{"rechnungswesen", "accounting"},
	{"kundenservice", "customer service"},
	{"kundendienst", "customer service"},
	{"aussendienst", "field sales"},
	{"außendienst", "field sales"},
	{"innendienst", "office sales"},
	{"leitung", "management"},
	{"leiter", "manager"},
	{"stellvertretender", "deputy"},
	{"senior", "senior"},
	{"junior", "junior"},
	{"für", "for"},
	{"und", "and"},
	{"oder", "or"},
	{"im bereich", "in"},
	{"bereich", "area"},
	{"gesucht", "wanted"},
}

var compiled []*regexp.Regexp

func init() {
	compiled = make([]*regexp.Regexp, len(rules))
	for i, r := range rules {
		compiled[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(r.de) + `\b`)
	}
}

// TranslateTitle applies the substitution table to one title. Titles
// with no German morphemes pass through unchanged.
func TranslateTitle(title string) string {
	out := title
	for i, re := range compiled {
		out = re.ReplaceAllString(out, rules[i].en)
	}
	return strings.Join(strings.Fields(out), " ")
}

// TranslateTitles translates a batch, preserving length and order.
func TranslateTitles(titles []string) []string {
	out := make([]string, len(titles))
	for i, t := range titles {
		out[i] = TranslateTitle(t)
	}
	return out
}

// garbage patterns a model response must not contain to be accepted as
// a translation: encoding junk, ellipsis placeholders, error objects.
var garbageRe = regexp.MustCompile(`\x{00a0}\?|\x{FFFD}|\.{3}|…|"error"`)

// ValidTranslation checks a translated batch against the input batch:
// same length, no empty entries, no encoding garbage or placeholders.
func ValidTranslation(in, out []string) error {
	if len(in) != len(out) {
		return fmt.Errorf("translation count mismatch: %d in, %d out", len(in), len(out))
	}
	for i, t := range out {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("empty translation at index %d", i)
		}
		if garbageRe.MatchString(t) {
			return fmt.Errorf("garbage in translation at index %d: %q", i, t)
		}
		for _, r := range t {
			if r < 0x20 && r != '\t' {
				return fmt.Errorf("non-printable character in translation at index %d", i)
			}
		}
	}
	return nil
}
