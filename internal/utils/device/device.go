package device

import (
	"strings"

	"github.com/mssola/user_agent"
)

// Info describes the client device parsed from a User-Agent string.
type Info struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	DeviceType     string `json:"device_type"`
	IsMobile       bool   `json:"is_mobile"`
	IsBot          bool   `json:"is_bot"`
}

const (
	typeDesktop = "desktop"
	typeMobile  = "mobile"
	typeTablet  = "tablet"
	typeBot     = "bot"
)

// Parse extracts device information from a raw User-Agent header value.
func Parse(userAgentString string) Info {
	ua := user_agent.New(userAgentString)

	browser, version := ua.Browser()
	lower := strings.ToLower(userAgentString)

	deviceType := typeDesktop
	switch {
	case strings.Contains(lower, "tablet") || strings.Contains(lower, "ipad"):
		deviceType = typeTablet
	case ua.Mobile():
		deviceType = typeMobile
	case ua.Bot():
		deviceType = typeBot
	}

	return Info{
		Browser:        browser,
		BrowserVersion: version,
		OS:             ua.OS(),
		DeviceType:     deviceType,
		IsMobile:       ua.Mobile(),
		IsBot:          ua.Bot(),
	}
}

// Label produces a short human-readable name for a device, used as the
// default display name when a device is first trusted.
func Label(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown device"
	}
	info := Parse(userAgentString)

	browser := info.Browser
	if browser == "" {
		browser = "Unknown browser"
	}
	os := info.OS
	if os == "" {
		os = "unknown OS"
	}
	return browser + " on " + os
}
