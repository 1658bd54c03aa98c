package urlcheck

import (
	"net/url"
	"regexp"
	"strings"
)

// SupportedPlatforms 域名到平台名的映射
var SupportedPlatforms = map[string]string{
	"youtube.com":     "YouTube",
	"youtu.be":        "YouTube",
	"twitter.com":     "Twitter",
	"x.com":           "Twitter",
	"instagram.com":   "Instagram",
	"tiktok.com":      "TikTok",
	"facebook.com":    "Facebook",
	"vimeo.com":       "Vimeo",
	"dailymotion.com": "Dailymotion",
	"twitch.tv":       "Twitch",
	"reddit.com":      "Reddit",
	"soundcloud.com":  "SoundCloud",
}

// urlPattern 合法 URL 的整体校验（协议、主机、端口、路径）
var urlPattern = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// Platform 返回 URL 所属平台名，未识别时返回 Unknown
func Platform(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "Unknown"
	}
	host := strings.ToLower(u.Hostname())
	for domain, name := range SupportedPlatforms {
		if strings.Contains(host, domain) {
			return name
		}
	}
	return "Unknown"
}

// PlatformNames 所有支持的平台名（去重）
func PlatformNames() []string {
	seen := make(map[string]bool)
	names := make([]string, 0, len(SupportedPlatforms))
	for _, name := range SupportedPlatforms {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Validate 校验 URL 格式，返回是否合法与提示信息
func Validate(rawURL string) (bool, string) {
	if rawURL == "" {
		return false, "URL is required"
	}

	if !urlPattern.MatchString(rawURL) {
		return false, "Invalid URL format"
	}

	// 平台未识别时仍然放行，交给下载引擎尝试
	if Platform(rawURL) == "Unknown" {
		return true, "URL appears valid but platform may not be fully supported"
	}

	return true, "Valid URL"
}
