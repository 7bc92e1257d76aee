package crawlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestBlockDetector_Classify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		html   string
		want   OutcomeKind
	}{
		{"正常页面", 200, "<h1 class=\"itemtit\">상품</h1>", OutcomeSuccess},
		{"403", 403, "", OutcomeBlocked},
		{"500", 500, "<html>error</html>", OutcomeBlocked},
		{"399不算拦截", 399, "<html></html>", OutcomeSuccess},
		{"大小写不敏感", 200, "<h1>ACCESS DENIED</h1>", OutcomeBlocked},
		{"Cloudflare挑战页", 200, "<title>Just a moment...</title>", OutcomeBlocked},
		{"韩文拦截提示", 200, "<p>접근이 차단되었습니다</p>", OutcomeBlocked},
		{"没有文档响应", 0, "", OutcomeTransportError},
		{"没有状态码但有拦截短语", 0, "verify you are human", OutcomeBlocked},
	}

	d := NewBlockDetector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := d.Classify(tt.status, tt.html)
			if got != tt.want {
				t.Errorf("Classify(%d) = %s (%s), want %s", tt.status, got, reason, tt.want)
			}
		})
	}
}

func TestBlockDetector_CustomPhrases(t *testing.T) {
	d := NewBlockDetector([]string{"  Robot Check ", ""})

	if kind, reason := d.Classify(200, "<h2>robot check</h2>"); kind != OutcomeBlocked || reason != "phrase:robot check" {
		t.Errorf("Classify() = %s, %s", kind, reason)
	}
	// 自定义列表替换默认短语
	if kind, _ := d.Classify(200, "access denied"); kind != OutcomeSuccess {
		t.Errorf("自定义短语不应包含默认短语, got %s", kind)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want OutcomeKind
	}{
		{"nil", nil, OutcomeSuccess},
		{"deadline", context.DeadlineExceeded, OutcomeTimeout},
		{"包装的deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), OutcomeTimeout},
		{"net超时", timeoutErr{}, OutcomeTimeout},
		{"超时文本", errors.New("Client.Timeout exceeded while awaiting headers"), OutcomeTimeout},
		{"连接重置", errConnReset, OutcomeTransportError},
		{"取消", context.Canceled, OutcomeTransportError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOutcomeKind_String(t *testing.T) {
	for kind, want := range map[OutcomeKind]string{
		OutcomeSuccess:        "success",
		OutcomeBlocked:        "blocked",
		OutcomeTransportError: "transport_error",
		OutcomeTimeout:        "timeout",
		OutcomeKind(42):       "unknown",
	} {
		if kind.String() != want {
			t.Errorf("%d.String() = %s, want %s", kind, kind.String(), want)
		}
	}
	if OutcomeSuccess.Retryable() || !OutcomeTimeout.Retryable() {
		t.Error("Retryable() 结果错误")
	}
}
