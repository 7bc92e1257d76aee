package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/PriceWatch/internal/crawlers"
	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/RecoveryAshes/PriceWatch/internal/notify"
	"github.com/RecoveryAshes/PriceWatch/internal/utils"
)

// ErrNotifyFailed 结果已产生但通知失败
var ErrNotifyFailed = errors.New("通知发送失败")

// ItemFetcher 抓取单个商品, 总是返回一个结果
type ItemFetcher interface {
	Fetch(ctx context.Context, itemID string) models.FetchResult
}

// BatchRunner 按顺序抓取商品列表
type BatchRunner struct {
	fetcher   ItemFetcher
	notifier  notify.Notifier
	pacingMin time.Duration
	pacingMax time.Duration
	jitter    *crawlers.Jitter
	sleeper   crawlers.Sleeper
	progress  bool
}

// BatchOption 批量运行选项
type BatchOption func(*BatchRunner)

// WithPacingSleeper 替换商品间等待
func WithPacingSleeper(s crawlers.Sleeper) BatchOption {
	return func(b *BatchRunner) { b.sleeper = s }
}

// WithPacingJitter 替换随机源
func WithPacingJitter(j *crawlers.Jitter) BatchOption {
	return func(b *BatchRunner) { b.jitter = j }
}

// WithProgress 显示进度条
func WithProgress(enabled bool) BatchOption {
	return func(b *BatchRunner) { b.progress = enabled }
}

// NewBatchRunner 创建批量运行器, notifier 为 nil 时不通知
func NewBatchRunner(fetcher ItemFetcher, notifier notify.Notifier, cfg models.FetchConfig, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		fetcher:   fetcher,
		notifier:  notifier,
		pacingMin: cfg.PacingMin,
		pacingMax: cfg.PacingMax,
		sleeper:   crawlers.RealSleeper{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.jitter == nil {
		b.jitter = crawlers.NewJitter(time.Now().UnixNano())
	}
	return b
}

// Run 依次抓取, 每个编号对应一个结果, 顺序与输入一致
// 商品之间随机等待 [pacingMin, pacingMax], 最后一个之后不等待
// 通知失败时返回包装了 ErrNotifyFailed 的错误, 结果仍然有效
func (b *BatchRunner) Run(ctx context.Context, itemIDs []string) ([]models.FetchResult, error) {
	utils.Infof("🚀 开始批量抓取: %d个商品", len(itemIDs))
	results := make([]models.FetchResult, 0, len(itemIDs))
	start := time.Now()

	var bar interface {
		Add(int) error
		Finish() error
	}
	if b.progress && len(itemIDs) > 0 {
		bar = utils.NewProgressBar(len(itemIDs), "抓取商品")
	}

	for i, itemID := range itemIDs {
		utils.Logger.Info().
			Int("index", i+1).
			Int("total", len(itemIDs)).
			Str("item_id", itemID).
			Msg("🔍 抓取商品")

		results = append(results, b.fetcher.Fetch(ctx, itemID))
		if bar != nil {
			_ = bar.Add(1)
		}

		if i < len(itemIDs)-1 && ctx.Err() == nil {
			delay := b.jitter.Between(b.pacingMin, b.pacingMax)
			utils.Debugf("等待 %s 后处理下一个商品...", delay)
			_ = b.sleeper.Sleep(ctx, delay)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	printSummary(results, time.Since(start))

	if b.notifier == nil {
		return results, nil
	}
	// 中断后仍发送已有结果
	if err := b.notifier.Notify(context.WithoutCancel(ctx), results); err != nil {
		utils.Error(err, "❌ 通知发送失败")
		return results, fmt.Errorf("%w: %w", ErrNotifyFailed, err)
	}
	return results, nil
}

// printSummary 打印批量抓取摘要
func printSummary(results []models.FetchResult, elapsed time.Duration) {
	var stats models.RunStats
	for _, r := range results {
		stats.Add(r)
	}

	utils.Info("==================================================")
	utils.Info("📊 批量抓取摘要")
	utils.Info("==================================================")
	utils.Infof("商品总数: %d", stats.TotalItems)
	utils.Infof("✅ 取到价格: %d", stats.PricedItems)
	utils.Infof("❓ 无价格: %d", stats.MissingPrice)
	utils.Infof("🚫 重试耗尽: %d", stats.BlockedItems)
	utils.Infof("🔁 总尝试次数: %d", stats.TotalAttempts)
	utils.Infof("⏱️  总耗时: %.2f秒", elapsed.Seconds())
	utils.Info("==================================================")

	if stats.BlockedItems > 0 {
		utils.Warn("被拦截的商品:")
		for _, r := range results {
			if r.Blocked() {
				utils.Warnf("  - %s (%d次尝试)", r.ItemID, r.Attempts)
			}
		}
	}
}
