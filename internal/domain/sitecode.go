package domain

import "regexp"

// UnknownSite is the sentinel site for messages that could not be attributed.
// It is never stored as a sender's last code.
const UnknownSite = "unknown"

// Site codes are numeric tokens introduced by a '#' marker, e.g. "#260016".
// Fewer than three digits is treated as noise, not a code.
var siteCodePattern = regexp.MustCompile(`#(\d{3,})`)

// ExtractSiteCode scans free text for the first '#'-prefixed site code.
// Malformed input degrades to "no code found"; this never fails.
func ExtractSiteCode(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	m := siteCodePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
