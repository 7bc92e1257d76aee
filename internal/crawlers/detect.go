package crawlers

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
)

// OutcomeKind 单次尝试的结果类型
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeBlocked
	OutcomeTransportError
	OutcomeTimeout
)

// String 用于日志和指标标签
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Retryable 除成功以外的结果都会重试
func (k OutcomeKind) Retryable() bool {
	return k != OutcomeSuccess
}

// AttemptOutcome 单次尝试的完整结果
type AttemptOutcome struct {
	Kind   OutcomeKind
	Status int    // 主文档状态码, 未收到响应时为0
	Reason string // 分类原因
	Fields Fields // 仅 Success 时有效
	Err    error  // TransportError / Timeout 的底层错误
}

// BlockDetector 拦截页识别
type BlockDetector struct {
	phrases []string
}

// NewBlockDetector 创建识别器, 短语统一转为小写, 空列表使用默认短语
func NewBlockDetector(phrases []string) *BlockDetector {
	if len(phrases) == 0 {
		phrases = models.DefaultBlockPhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &BlockDetector{phrases: lowered}
}

// Classify 根据状态码和页面内容分类
// 状态码 >= 400 或包含拦截短语 => Blocked; 未收到文档响应 => TransportError
func (d *BlockDetector) Classify(status int, html string) (OutcomeKind, string) {
	if status >= 400 {
		return OutcomeBlocked, "http_status"
	}
	if phrase, ok := d.matchPhrase(html); ok {
		return OutcomeBlocked, "phrase:" + phrase
	}
	if status == 0 {
		return OutcomeTransportError, "no_document_response"
	}
	return OutcomeSuccess, ""
}

func (d *BlockDetector) matchPhrase(html string) (string, bool) {
	if html == "" {
		return "", false
	}
	text := strings.ToLower(html)
	for _, p := range d.phrases {
		if strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}

// classifyError 导航错误分类: 超时或传输错误
func classifyError(err error) OutcomeKind {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return OutcomeTimeout
	}
	return OutcomeTransportError
}
