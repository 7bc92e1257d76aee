// Package notify 把一次运行的抓取结果整理成摘要并发送出去
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/RecoveryAshes/PriceWatch/internal/utils"
)

const (
	digestHeader = "📦 G마켓 가격 알림"
	timeLayout   = "2006-01-02 15:04:05"

	// Telegram 单条消息上限 4096 字符, 留出页码余量
	maxMessageRunes = 4000
)

// Notifier 接收按输入顺序排列的结果列表
type Notifier interface {
	Notify(ctx context.Context, results []models.FetchResult) error
}

// DigestOptions 摘要格式选项
type DigestOptions struct {
	SkipMissingPrice bool           // 跳过没有价格的商品 (包括被拦截的)
	Location         *time.Location // 收集时间的显示时区, nil 时保持原样
}

// FormatEntry 单个商品的摘要块
func FormatEntry(r models.FetchResult, opts DigestOptions) string {
	collected := r.CollectedAt
	if opts.Location != nil {
		collected = collected.In(opts.Location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "상품ID: %s\n", r.ItemID)
	fmt.Fprintf(&b, "상품명: %s\n", r.Title)
	fmt.Fprintf(&b, "가격: %s\n", displayPrice(r))
	fmt.Fprintf(&b, "링크: %s\n", r.URL)
	fmt.Fprintf(&b, "수집: %s", collected.Format(timeLayout))
	return b.String()
}

// displayPrice 区分 "被拦截" 和 "页面没有价格"
func displayPrice(r models.FetchResult) string {
	switch {
	case r.Blocked():
		return fmt.Sprintf("%s (🚫 접근 차단, %d회 시도)", models.SentinelNA, r.Attempts)
	case !r.HasPrice():
		return fmt.Sprintf("%s (가격 정보 없음)", models.SentinelNA)
	default:
		return formatWon(r.Price)
	}
}

// formatWon 纯数字价格加千分位和货币单位, 其他内容原样返回
func formatWon(price string) string {
	for _, c := range price {
		if c < '0' || c > '9' {
			return price
		}
	}
	n := len(price)
	if n <= 3 {
		return price + "원"
	}

	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(price[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(price[i : i+3])
	}
	b.WriteString("원")
	return b.String()
}

// BuildMessages 生成要发送的消息, 超过长度上限时按商品拆分
// 没有可发送的商品时返回 nil
func BuildMessages(results []models.FetchResult, opts DigestOptions) []string {
	entries := make([]string, 0, len(results))
	for _, r := range results {
		if opts.SkipMissingPrice && !r.HasPrice() {
			continue
		}
		entries = append(entries, FormatEntry(r, opts))
	}
	if len(entries) == 0 {
		return nil
	}

	var chunks [][]string
	var current []string
	size := 0
	for _, entry := range entries {
		n := utf8.RuneCountInString(entry) + 2
		if len(current) > 0 && size+n > maxMessageRunes {
			chunks = append(chunks, current)
			current, size = nil, 0
		}
		current = append(current, entry)
		size += n
	}
	chunks = append(chunks, current)

	messages := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		header := digestHeader
		if len(chunks) > 1 {
			header = fmt.Sprintf("%s (%d/%d)", digestHeader, i+1, len(chunks))
		}
		messages = append(messages, header+"\n\n"+strings.Join(chunk, "\n\n"))
	}
	return messages
}

// LogNotifier 把摘要写入日志, 未配置 Telegram 或 --dry-run 时使用
type LogNotifier struct {
	Options DigestOptions
}

// Notify 逐条输出消息
func (n *LogNotifier) Notify(ctx context.Context, results []models.FetchResult) error {
	messages := BuildMessages(results, n.Options)
	if len(messages) == 0 {
		utils.Info("📭 没有需要通知的商品")
		return nil
	}
	for _, msg := range messages {
		utils.Infof("\n%s", msg)
	}
	return nil
}
