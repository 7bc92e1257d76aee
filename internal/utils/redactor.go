package utils

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// SensitiveKeywords 名称包含这些关键字的头部视为凭据
var SensitiveKeywords = []string{
	"authorization",
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"cookie",
	"session",
}

// urlHeaders 值为地址的头部, 日志中去掉查询参数 (商品页链接常带追踪和会员参数)
var urlHeaders = map[string]bool{
	"Referer": true,
	"Origin":  true,
}

// HeaderRedactor 日志输出前的头部脱敏
type HeaderRedactor struct {
	sensitiveKeywords []string
}

// NewHeaderRedactor 创建头部脱敏器
func NewHeaderRedactor() *HeaderRedactor {
	return &HeaderRedactor{sensitiveKeywords: SensitiveKeywords}
}

// IsSensitiveHeader 按名称关键字判断是否为凭据
func (hr *HeaderRedactor) IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range hr.sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// RedactHeaderValue 脱敏单个头部值
//   - 凭据: Bearer 只保留前缀, 长值保留首尾4位, 短值完全隐藏
//   - 地址: 去掉查询参数和片段
func (hr *HeaderRedactor) RedactHeaderValue(name, value string) string {
	switch {
	case hr.IsSensitiveHeader(name):
		return maskCredential(value)
	case urlHeaders[http.CanonicalHeaderKey(name)]:
		return stripQuery(value)
	default:
		return value
	}
}

func maskCredential(value string) string {
	if strings.HasPrefix(value, "Bearer ") {
		return "Bearer ***"
	}
	if len(value) > 8 {
		return value[:4] + "***" + value[len(value)-4:]
	}
	return "***"
}

func stripQuery(value string) string {
	u, err := url.Parse(value)
	if err != nil {
		return "***"
	}
	if u.RawQuery == "" && u.Fragment == "" {
		return value
	}
	u.RawQuery, u.Fragment = "", ""
	return u.String() + "?***"
}

// Redact 返回脱敏后的头部 map, 每个头部只取第一个值
func (hr *HeaderRedactor) Redact(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		result[name] = hr.RedactHeaderValue(name, values[0])
	}
	return result
}

// RedactToString 格式: "Name1: value1, Name2: value2", 按名称排序
func (hr *HeaderRedactor) RedactToString(headers http.Header) string {
	redacted := hr.Redact(headers)
	names := make([]string, 0, len(redacted))
	for name := range redacted {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+redacted[name])
	}
	return strings.Join(parts, ", ")
}
