package observability

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRealClientIP extracts the real client IP from CloudFront headers.
// CloudFront-Viewer-Address contains the client IP in "IP:port" format.
// Falls back to c.ClientIP() if the header is not present.
func GetRealClientIP(c *gin.Context) string {
	if viewerAddr := c.GetHeader("CloudFront-Viewer-Address"); viewerAddr != "" {
		if colonIdx := strings.LastIndex(viewerAddr, ":"); colonIdx > 0 {
			return viewerAddr[:colonIdx]
		}
		return viewerAddr
	}
	return c.ClientIP()
}

// ViewerInfo is the subset of CloudFront viewer headers used to enrich
// browser pixel events when the payload leaves them out.
type ViewerInfo struct {
	CountryCode string // ISO-3166 alpha-2
	Region      string
	City        string
	DeviceType  string // desktop, mobile, tablet, smarttv, unknown
	DeviceOS    string // android, ios, other
	IP          string
	UserAgent   string
}

// GetViewerInfo extracts viewer geo and device data from the request.
func GetViewerInfo(c *gin.Context) ViewerInfo {
	return ViewerInfo{
		CountryCode: strings.ToUpper(c.GetHeader("CloudFront-Viewer-Country")),
		Region:      c.GetHeader("CloudFront-Viewer-Country-Region-Name"),
		City:        c.GetHeader("CloudFront-Viewer-City"),
		DeviceType:  GetDeviceType(c),
		DeviceOS:    GetDeviceOS(c),
		IP:          GetRealClientIP(c),
		UserAgent:   c.Request.UserAgent(),
	}
}

// GetDeviceType determines the device type from CloudFront headers and User-Agent parsing.
// Returns "desktop", "mobile", "tablet", "smarttv", or "unknown".
func GetDeviceType(c *gin.Context) string {
	if c.GetHeader("CloudFront-Is-Mobile-Viewer") == "true" {
		return "mobile"
	}

	ua := strings.ToLower(c.Request.UserAgent())

	// Tablets first: their UAs often contain "mobile" too.
	if strings.Contains(ua, "ipad") ||
		(strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")) ||
		strings.Contains(ua, "tablet") {
		return "tablet"
	}

	if strings.Contains(ua, "smart-tv") ||
		strings.Contains(ua, "smarttv") ||
		strings.Contains(ua, "googletv") ||
		strings.Contains(ua, "appletv") ||
		strings.Contains(ua, "roku") ||
		strings.Contains(ua, "webos") ||
		strings.Contains(ua, "tizen") {
		return "smarttv"
	}

	if strings.Contains(ua, "mobile") ||
		strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "ipod") {
		return "mobile"
	}

	if ua != "" {
		return "desktop"
	}

	return "unknown"
}

// GetDeviceOS determines the device OS from User-Agent parsing.
// Returns "android", "ios", or "other".
func GetDeviceOS(c *gin.Context) string {
	ua := strings.ToLower(c.Request.UserAgent())

	if strings.Contains(ua, "android") {
		return "android"
	}
	if strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "ipad") ||
		strings.Contains(ua, "ipod") ||
		strings.Contains(ua, "ios") {
		return "ios"
	}
	return "other"
}

// IsLikelyBot reports whether the User-Agent looks like a crawler or headless client.
func IsLikelyBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return false
	}
	for _, marker := range []string{"bot", "crawler", "spider", "headless", "curl/", "python-requests", "wget"} {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}
