package service

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseClient(t *testing.T) {
	Convey("Given User-Agent headers from different clients", t, func() {
		Convey("When the header is a desktop browser", func() {
			info := parseClient("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

			Convey("Then it should be classified as desktop with its browser", func() {
				So(info.deviceType, ShouldEqual, DeviceDesktop)
				So(info.browser, ShouldEqual, "Chrome")
				So(info.os, ShouldContainSubstring, "Windows")
			})
		})

		Convey("When the header is a phone", func() {
			info := parseClient("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")

			Convey("Then it should be classified as mobile", func() {
				So(info.deviceType, ShouldEqual, DeviceMobile)
			})
		})

		Convey("When the header is a crawler", func() {
			info := parseClient("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")

			Convey("Then it should be classified as a bot", func() {
				So(info.deviceType, ShouldEqual, DeviceBot)
			})
		})

		Convey("When the header is absent", func() {
			Convey("Then the device type should be unknown", func() {
				So(parseClient(""), ShouldResemble, clientInfo{deviceType: DeviceUnknown})
			})
		})
	})
}
