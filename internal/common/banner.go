package common

import "github.com/ternarybob/banner"

// PrintBanner prints the application startup banner.
func PrintBanner(version string) {
	banner.PrintSimple("JobRadar", version)
}
