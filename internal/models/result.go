package models

import (
	"time"
)

// 占位值
const (
	SentinelNA           = "N/A"           // 未找到字段
	SentinelAccessDenied = "Access Denied" // 重试耗尽仍被拦截
	SentinelUnknown      = "Unknown"       // 标题无法确定
)

// FetchStatus 商品抓取的最终状态
type FetchStatus string

const (
	StatusOK        FetchStatus = "ok"        // 页面正常加载 (字段可能是占位值)
	StatusExhausted FetchStatus = "exhausted" // 所有尝试均失败
)

// FetchResult 单个商品的抓取结果
type FetchResult struct {
	ItemID      string      `json:"item_id"`
	Title       string      `json:"title"`
	Price       string      `json:"price"`
	URL         string      `json:"url"`
	CollectedAt time.Time   `json:"collected_at"`
	Status      FetchStatus `json:"status"`
	Attempts    int         `json:"attempts"`
}

// HasPrice 价格是否为有效值
func (r FetchResult) HasPrice() bool {
	return r.Price != "" && r.Price != SentinelNA
}

// Blocked 重试耗尽 (被拦截或网络持续失败)
func (r FetchResult) Blocked() bool {
	return r.Status == StatusExhausted
}

// ExhaustedResult 构造重试耗尽时的占位结果
func ExhaustedResult(itemID, url string, attempts int, collectedAt time.Time) FetchResult {
	return FetchResult{
		ItemID:      itemID,
		Title:       SentinelAccessDenied,
		Price:       SentinelNA,
		URL:         url,
		CollectedAt: collectedAt,
		Status:      StatusExhausted,
		Attempts:    attempts,
	}
}
