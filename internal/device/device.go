// Package device turns User-Agent strings into display names users can
// recognize on a session listing, like "Firefox on GNU/Linux".
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// UnknownDevice is the display name when the User-Agent is absent or carries
// neither a browser nor an OS.
const UnknownDevice = "Unknown Device"

// ParseUserAgent derives a human-readable device label from a User-Agent
// string.
func ParseUserAgent(rawUA string) string {
	rawUA = strings.TrimSpace(rawUA)
	if rawUA == "" {
		return UnknownDevice
	}

	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name

	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return UnknownDevice
	}
}
