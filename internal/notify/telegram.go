package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/RecoveryAshes/PriceWatch/internal/utils"
)

const (
	// DefaultAPIBase Telegram Bot API 地址
	DefaultAPIBase = "https://api.telegram.org"

	defaultTimeout = 10 * time.Second
)

// ErrSendFailed Telegram 返回失败
var ErrSendFailed = errors.New("telegram 消息发送失败")

// TelegramNotifier 通过 Bot API 的 sendMessage 发送摘要
type TelegramNotifier struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
	options DigestOptions
}

// TelegramOption 选项
type TelegramOption func(*TelegramNotifier)

// WithAPIBase 替换 API 地址
func WithAPIBase(base string) TelegramOption {
	return func(t *TelegramNotifier) {
		if base != "" {
			t.apiBase = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *TelegramNotifier) { t.client = c }
}

// WithTimeout 设置请求超时
func WithTimeout(d time.Duration) TelegramOption {
	return func(t *TelegramNotifier) {
		if d > 0 {
			t.client.Timeout = d
		}
	}
}

// WithDigestOptions 设置摘要格式
func WithDigestOptions(opts DigestOptions) TelegramOption {
	return func(t *TelegramNotifier) { t.options = opts }
}

// NewTelegramNotifier 创建 Telegram 通知器
func NewTelegramNotifier(token, chatID string, opts ...TelegramOption) *TelegramNotifier {
	t := &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		apiBase: DefaultAPIBase,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Configured token 和 chat_id 是否都已设置
func (t *TelegramNotifier) Configured() bool {
	return t.token != "" && t.chatID != ""
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Notify 发送摘要; 未配置时记录并跳过
func (t *TelegramNotifier) Notify(ctx context.Context, results []models.FetchResult) error {
	if !t.Configured() {
		utils.Warn("Telegram token/chat_id 未设置, 跳过发送")
		return nil
	}

	messages := BuildMessages(results, t.options)
	if len(messages) == 0 {
		utils.Info("📭 没有需要通知的商品")
		return nil
	}

	for i, msg := range messages {
		if err := t.send(ctx, msg); err != nil {
			return fmt.Errorf("第%d/%d条消息: %w", i+1, len(messages), err)
		}
	}
	utils.Infof("📨 Telegram 通知已发送 (%d条消息)", len(messages))
	return nil
}

func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	form := url.Values{
		"chat_id":                  {t.chatID},
		"text":                     {text},
		"disable_web_page_preview": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return t.redact(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return t.redact(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	var result sendMessageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("%w: HTTP %d, 响应无法解析", ErrSendFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || !result.OK {
		return fmt.Errorf("%w: HTTP %d, %s", ErrSendFailed, resp.StatusCode, result.Description)
	}
	return nil
}

// redact 错误信息里的请求地址包含 token
func (t *TelegramNotifier) redact(err error) error {
	msg := strings.ReplaceAll(err.Error(), t.token, "***")
	return fmt.Errorf("%w: %s", ErrSendFailed, msg)
}
