package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo is what the audit log records about the device behind a login
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // mobile, tablet, desktop
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	IsBot      bool   `json:"is_bot"`
	Platform   string `json:"platform"` // android, ios, windows, mac, linux
}

var tabletIndicators = []string{"ipad", "tablet", "kindle", "nexus 7", "nexus 9", "sm-t"}

// ParseUserAgent parses a User-Agent string and extracts device information
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{DeviceType: "unknown", OS: "Unknown", Browser: "Unknown", Platform: "unknown"}
	}

	parser := ua.New(userAgent)

	info := DeviceInfo{
		DeviceType: "desktop",
		OS:         "Unknown",
		Browser:    "Unknown",
		IsBot:      parser.Bot(),
		Platform:   "unknown",
	}

	if parser.Mobile() {
		info.DeviceType = "mobile"
		lower := strings.ToLower(userAgent)
		for _, indicator := range tabletIndicators {
			if strings.Contains(lower, indicator) {
				info.DeviceType = "tablet"
				break
			}
		}
	}

	osInfo := parser.OSInfo()
	if osInfo.Name != "" {
		info.OS = strings.TrimSpace(osInfo.Name + " " + osInfo.Version)
		info.Platform = platformFor(osInfo.Name)
	}

	if name, version := parser.Browser(); name != "" {
		info.Browser = strings.TrimSpace(name + " " + version)
	}

	return info
}

func platformFor(osName string) string {
	name := strings.ToLower(osName)
	switch {
	case strings.Contains(name, "android"):
		return "android"
	case strings.Contains(name, "ios"), strings.Contains(name, "iphone"):
		return "ios"
	case strings.Contains(name, "windows"):
		return "windows"
	case strings.Contains(name, "mac"):
		return "mac"
	case strings.Contains(name, "chrome os"):
		return "chromeos"
	case strings.Contains(name, "linux"), strings.Contains(name, "ubuntu"):
		return "linux"
	}
	return "unknown"
}
