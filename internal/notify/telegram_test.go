package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/jarcoal/httpmock"
)

const (
	testToken    = "123456:ABC-secret"
	sendEndpoint = "https://api.telegram.org/bot123456:ABC-secret/sendMessage"
)

func newMockedNotifier(t *testing.T, opts ...TelegramOption) (*TelegramNotifier, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	opts = append([]TelegramOption{WithHTTPClient(&http.Client{Transport: transport})}, opts...)
	return NewTelegramNotifier(testToken, "-100200", opts...), transport
}

func TestTelegramNotifier_Notify(t *testing.T) {
	n, transport := newMockedNotifier(t)

	var chatID, text, contentType string
	transport.RegisterResponder(http.MethodPost, sendEndpoint, func(req *http.Request) (*http.Response, error) {
		contentType = req.Header.Get("Content-Type")
		if err := req.ParseForm(); err != nil {
			return nil, err
		}
		chatID = req.PostForm.Get("chat_id")
		text = req.PostForm.Get("text")
		return httpmock.NewStringResponse(200, `{"ok":true,"result":{"message_id":1}}`), nil
	})

	err := n.Notify(context.Background(), []models.FetchResult{okResult("1920684660", "테스트 상품", "12345")})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if chatID != "-100200" {
		t.Errorf("chat_id = %q", chatID)
	}
	if contentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if !strings.Contains(text, "가격: 12,345원") || !strings.HasPrefix(text, "📦 G마켓 가격 알림") {
		t.Errorf("text = %q", text)
	}
	if transport.GetTotalCallCount() != 1 {
		t.Errorf("调用次数 = %d", transport.GetTotalCallCount())
	}
}

func TestTelegramNotifier_NotConfigured(t *testing.T) {
	transport := httpmock.NewMockTransport()
	n := NewTelegramNotifier("", "", WithHTTPClient(&http.Client{Transport: transport}))

	if err := n.Notify(context.Background(), []models.FetchResult{okResult("1", "a", "1")}); err != nil {
		t.Errorf("未配置时应跳过, got %v", err)
	}
	if transport.GetTotalCallCount() != 0 {
		t.Error("未配置时不应发送请求")
	}
}

func TestTelegramNotifier_Errors(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"API返回失败", httpmock.NewStringResponder(400, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)},
		{"响应不是JSON", httpmock.NewStringResponder(502, `<html>Bad Gateway</html>`)},
		{"网络错误", httpmock.NewErrorResponder(errors.New("dial tcp: connection refused"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, transport := newMockedNotifier(t)
			transport.RegisterResponder(http.MethodPost, sendEndpoint, tt.responder)

			err := n.Notify(context.Background(), []models.FetchResult{okResult("1", "a", "1")})
			if !errors.Is(err, ErrSendFailed) {
				t.Fatalf("期望 ErrSendFailed, got %v", err)
			}
			if strings.Contains(err.Error(), testToken) {
				t.Errorf("错误信息泄露了token: %v", err)
			}
		})
	}
}

func TestTelegramNotifier_APIBase(t *testing.T) {
	n, transport := newMockedNotifier(t, WithAPIBase("https://tg.example.com/"))
	transport.RegisterResponder(http.MethodPost, "https://tg.example.com/bot123456:ABC-secret/sendMessage",
		httpmock.NewStringResponder(200, `{"ok":true}`))

	if err := n.Notify(context.Background(), []models.FetchResult{okResult("1", "a", "1")}); err != nil {
		t.Errorf("Notify() error = %v", err)
	}
}
