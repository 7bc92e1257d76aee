package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
)

var collectedAt = time.Date(2024, 5, 1, 9, 30, 5, 0, time.UTC)

func okResult(id, title, price string) models.FetchResult {
	return models.FetchResult{
		ItemID:      id,
		Title:       title,
		Price:       price,
		URL:         "https://item.gmarket.co.kr/Item?goodscode=" + id,
		CollectedAt: collectedAt,
		Status:      models.StatusOK,
		Attempts:    1,
	}
}

func TestFormatEntry(t *testing.T) {
	got := FormatEntry(okResult("1920684660", "테스트 상품", "12345"), DigestOptions{})

	want := "상품ID: 1920684660\n" +
		"상품명: 테스트 상품\n" +
		"가격: 12,345원\n" +
		"링크: https://item.gmarket.co.kr/Item?goodscode=1920684660\n" +
		"수집: 2024-05-01 09:30:05"
	if got != want {
		t.Errorf("FormatEntry() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatEntry_Location(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	got := FormatEntry(okResult("1", "상품", "100"), DigestOptions{Location: seoul})

	if !strings.HasSuffix(got, "수집: 2024-05-01 18:30:05") {
		t.Errorf("时区转换错误: %s", got)
	}
}

func TestDisplayPrice(t *testing.T) {
	tests := []struct {
		name   string
		result models.FetchResult
		want   string
	}{
		{"正常价格", okResult("1", "a", "1234500"), "1,234,500원"},
		{"三位数", okResult("1", "a", "990"), "990원"},
		{"非数字原样", okResult("1", "a", "품절"), "품절"},
		{"页面没有价格", okResult("1", "a", models.SentinelNA), "N/A (가격 정보 없음)"},
		{"被拦截", models.ExhaustedResult("1", "u", 3, collectedAt), "N/A (🚫 접근 차단, 3회 시도)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayPrice(tt.result); got != tt.want {
				t.Errorf("displayPrice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildMessages(t *testing.T) {
	results := []models.FetchResult{
		okResult("1", "첫번째", "1000"),
		okResult("2", "두번째", models.SentinelNA),
		models.ExhaustedResult("3", "u", 3, collectedAt),
	}

	t.Run("保持输入顺序", func(t *testing.T) {
		msgs := BuildMessages(results, DigestOptions{})
		if len(msgs) != 1 {
			t.Fatalf("消息数 = %d", len(msgs))
		}
		msg := msgs[0]
		if !strings.HasPrefix(msg, "📦 G마켓 가격 알림\n\n") {
			t.Errorf("缺少标题: %q", msg[:40])
		}
		i1, i2, i3 := strings.Index(msg, "상품ID: 1"), strings.Index(msg, "상품ID: 2"), strings.Index(msg, "상품ID: 3")
		if !(i1 < i2 && i2 < i3) {
			t.Errorf("顺序错误: %d %d %d", i1, i2, i3)
		}
	})

	t.Run("跳过没有价格的商品", func(t *testing.T) {
		msgs := BuildMessages(results, DigestOptions{SkipMissingPrice: true})
		if len(msgs) != 1 || strings.Contains(msgs[0], "상품ID: 2") || strings.Contains(msgs[0], "상품ID: 3") {
			t.Errorf("BuildMessages() = %v", msgs)
		}
	})

	t.Run("全部被过滤", func(t *testing.T) {
		if msgs := BuildMessages(results[1:], DigestOptions{SkipMissingPrice: true}); msgs != nil {
			t.Errorf("期望nil, got %v", msgs)
		}
	})

	t.Run("超长时拆分", func(t *testing.T) {
		many := make([]models.FetchResult, 0, 60)
		for i := 0; i < 60; i++ {
			many = append(many, okResult("1920684660", strings.Repeat("가", 60), "12345"))
		}
		msgs := BuildMessages(many, DigestOptions{})
		if len(msgs) < 2 {
			t.Fatalf("应拆分为多条消息, got %d", len(msgs))
		}
		total := 0
		for i, msg := range msgs {
			if n := len([]rune(msg)); n > 4096 {
				t.Errorf("第%d条消息过长: %d", i+1, n)
			}
			if !strings.HasPrefix(msg, "📦 G마켓 가격 알림 (") {
				t.Errorf("第%d条消息缺少页码", i+1)
			}
			total += strings.Count(msg, "상품ID: ")
		}
		if total != 60 {
			t.Errorf("拆分后商品数 = %d", total)
		}
	})
}

func TestLogNotifier(t *testing.T) {
	n := &LogNotifier{}
	if err := n.Notify(context.Background(), []models.FetchResult{okResult("1", "a", "1")}); err != nil {
		t.Errorf("Notify() error = %v", err)
	}
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Errorf("空结果 Notify() error = %v", err)
	}
}
