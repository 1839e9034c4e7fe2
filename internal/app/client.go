package service

import "github.com/mssola/useragent"

// Client device types derived from the User-Agent header.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// clientInfo is the parsed User-Agent of a tracked event. It is used for logs
// and metrics only and never persisted.
type clientInfo struct {
	browser    string
	os         string
	deviceType string
}

func parseClient(ua string) clientInfo {
	if ua == "" {
		return clientInfo{deviceType: DeviceUnknown}
	}
	parsed := useragent.New(ua)
	info := clientInfo{os: parsed.OS(), deviceType: DeviceDesktop}
	info.browser, _ = parsed.Browser()
	switch {
	case parsed.Bot():
		info.deviceType = DeviceBot
	case parsed.Mobile():
		info.deviceType = DeviceMobile
	}
	return info
}
