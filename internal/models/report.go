package models

import (
	"encoding/json"
	"time"
)

// RunStats 单次运行统计
type RunStats struct {
	TotalItems    int     `json:"total_items"`    // 商品总数
	PricedItems   int     `json:"priced_items"`   // 取到价格的商品数
	MissingPrice  int     `json:"missing_price"`  // 页面正常但无价格
	BlockedItems  int     `json:"blocked_items"`  // 重试耗尽的商品数
	TotalAttempts int     `json:"total_attempts"` // 总尝试次数
	Duration      float64 `json:"duration"`       // 总耗时(秒)
}

// Add 累加一个结果
func (s *RunStats) Add(r FetchResult) {
	s.TotalItems++
	s.TotalAttempts += r.Attempts
	switch {
	case r.Blocked():
		s.BlockedItems++
	case r.HasPrice():
		s.PricedItems++
	default:
		s.MissingPrice++
	}
}

// RunReport 运行报告
type RunReport struct {
	RunID     string    `json:"run_id"`
	Host      string    `json:"host"`
	Mode      FetchMode `json:"mode"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Stats   RunStats      `json:"stats"`
	Results []FetchResult `json:"results"`

	// 通知失败时记录原因, 结果本身仍然有效
	NotifyError string `json:"notify_error,omitempty"`

	Config FetchConfig `json:"config"`
}

// NewRunReport 根据结果列表生成报告
func NewRunReport(runID string, cfg FetchConfig, start, end time.Time, results []FetchResult) *RunReport {
	report := &RunReport{
		RunID:     runID,
		Host:      cfg.Host,
		Mode:      cfg.Mode,
		StartTime: start,
		EndTime:   end,
		Results:   results,
		Config:    cfg,
	}
	for _, r := range results {
		report.Stats.Add(r)
	}
	report.Stats.Duration = end.Sub(start).Seconds()
	return report
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
