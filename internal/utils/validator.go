package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"golang.org/x/net/http/httpguts"
)

// MaxHeaderValueLength 单个头部值上限 (8KB)
const MaxHeaderValueLength = 8192

// ManagedHeaders 由会话或传输层决定的头部, 不允许配置, 值为原因
var ManagedHeaders = map[string]string{
	"Host":              "由 fetch.host 决定",
	"Cookie":            "由会话的 cookie jar 管理, 被拦截后会清空, 固定值会让清空失效",
	"Content-Length":    "由HTTP传输层计算",
	"Transfer-Encoding": "由HTTP传输层决定",
	"Connection":        "由HTTP传输层决定",
}

// SupportedEncodings 静态会话能解码的 Content-Encoding
var SupportedEncodings = []string{"gzip", "deflate", "br", "identity"}

// valueRule 特定头部的取值约束, 通过时返回空 reason
type valueRule func(value string) (reason, suggestion string)

var valueRules = map[string]valueRule{
	"Referer":         absoluteURLRule,
	"Origin":          absoluteURLRule,
	"Accept-Encoding": encodingRule,
}

// HeaderValidator 检查附加在商品页请求上的头部
type HeaderValidator struct {
	maxValueLength int
	managed        map[string]string
	rules          map[string]valueRule
}

// NewHeaderValidator 创建验证器
func NewHeaderValidator() *HeaderValidator {
	managed := make(map[string]string, len(ManagedHeaders))
	for name, reason := range ManagedHeaders {
		managed[http.CanonicalHeaderKey(name)] = reason
	}
	return &HeaderValidator{
		maxValueLength: MaxHeaderValueLength,
		managed:        managed,
		rules:          valueRules,
	}
}

// ValidateName 名称必须是 RFC 7230 token
func (hv *HeaderValidator) ValidateName(name string) error {
	if name == "" {
		return &models.ValidationError{Field: "name", HeaderName: name, Reason: "头部名称不能为空"}
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "头部名称不是合法的 token",
			Suggestion: "例如 'Referer', 'X-Requested-With'",
		}
	}
	return nil
}

// ValidateValue 检查长度和字符, 再套用该头部的专用规则
// 浏览器的 SetExtraHeaders 只接受 ASCII, 因此比 RFC 更严格
func (hv *HeaderValidator) ValidateValue(name, value string) error {
	invalid := func(reason, suggestion string) error {
		return &models.ValidationError{Field: "value", HeaderName: name, Reason: reason, Suggestion: suggestion}
	}

	if len(value) > hv.maxValueLength {
		return invalid(
			fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), hv.maxValueLength),
			fmt.Sprintf("将值缩短至 %d 字节以内", hv.maxValueLength),
		)
	}
	if !httpguts.ValidHeaderFieldValue(value) || !isASCII(value) {
		return invalid("头部值包含非法字符 (仅允许可打印ASCII字符)", "非ASCII内容请先做百分号编码")
	}

	if rule, ok := hv.rules[http.CanonicalHeaderKey(name)]; ok {
		if reason, suggestion := rule(value); reason != "" {
			return invalid(reason, suggestion)
		}
	}
	return nil
}

// ValidateHeader 验证单个头部
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	if reason, ok := hv.managed[http.CanonicalHeaderKey(name)]; ok {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "此头部不允许自定义: " + reason,
			Suggestion: fmt.Sprintf("移除 '%s' 头部配置", name),
		}
	}
	if err := hv.ValidateName(name); err != nil {
		return err
	}
	return hv.ValidateValue(name, value)
}

// IsForbidden 是否为会话管理的头部 (不区分大小写)
func (hv *HeaderValidator) IsForbidden(name string) bool {
	_, ok := hv.managed[http.CanonicalHeaderKey(name)]
	return ok
}

// Validate 验证全部头部, 返回第一个错误
func (hv *HeaderValidator) Validate(headers http.Header) error {
	for name, values := range headers {
		for _, value := range values {
			if err := hv.ValidateHeader(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func absoluteURLRule(value string) (string, string) {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "必须是完整的 http(s) 地址", "例如 'https://www.gmarket.co.kr/'"
	}
	return "", ""
}

// encodingRule 只允许静态会话能解码的编码
func encodingRule(value string) (string, string) {
	for _, part := range strings.Split(value, ",") {
		coding, _, _ := strings.Cut(part, ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding == "" {
			continue
		}
		supported := false
		for _, s := range SupportedEncodings {
			if coding == s {
				supported = true
				break
			}
		}
		if !supported {
			return fmt.Sprintf("不支持的编码 %q", coding), "只使用 " + strings.Join(SupportedEncodings, ", ")
		}
	}
	return "", ""
}
