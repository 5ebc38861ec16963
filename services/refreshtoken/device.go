package refreshtoken

import (
	"github.com/mileusna/useragent"
)

const maxDeviceInfoLength = 255

// DescribeDevice turns a User-Agent header into a short label such as
// "Firefox 121.0 on Linux (Desktop)".
func DescribeDevice(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.Parse(userAgentString)

	browser := "Unknown Browser"
	if ua.Name != "" {
		browser = ua.Name
		if ua.Version != "" {
			browser += " " + ua.Version
		}
	}

	os := "Unknown OS"
	if ua.OS != "" {
		os = ua.OS
		if ua.OSVersion != "" {
			os += " " + ua.OSVersion
		}
	}

	deviceType := "Desktop"
	switch {
	case ua.Bot:
		deviceType = "Bot"
	case ua.Tablet:
		deviceType = "Tablet"
	case ua.Mobile:
		deviceType = "Mobile"
	}

	label := browser + " on " + os + " (" + deviceType + ")"
	if len(label) > maxDeviceInfoLength {
		label = label[:maxDeviceInfoLength]
	}
	return label
}
