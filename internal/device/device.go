package device

import (
	"strings"

	"github.com/mssola/user_agent"
)

const unknownDevice = "Unknown Device"

// 保存する端末情報の最大長（refresh_tokens.device_info）
const maxLen = 255

// Describe は User-Agent を "Chrome 120.0 on Windows 10 (mobile)" のような文字列にする
func Describe(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}

	ua := user_agent.New(userAgent)

	var b strings.Builder
	name, version := ua.Browser()
	if name != "" {
		b.WriteString(name)
		if version != "" {
			b.WriteString(" " + version)
		}
	}

	if osInfo := ua.OS(); osInfo != "" {
		if b.Len() > 0 {
			b.WriteString(" on ")
		}
		b.WriteString(osInfo)
	}

	switch {
	case ua.Bot():
		b.WriteString(" (bot)")
	case ua.Mobile():
		b.WriteString(" (mobile)")
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return unknownDevice
	}
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}
