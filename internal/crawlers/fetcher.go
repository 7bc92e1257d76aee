package crawlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/RecoveryAshes/PriceWatch/internal/utils"
)

// Fetcher 单个商品的抓取编排器
//
// 每次尝试都在共享会话上打开新页面, 依次执行行为模拟、导航、拦截识别和字段提取,
// 尝试结束时无论结果如何都会关闭页面. 被拦截时保存快照并清空 cookie,
// 失败后按 RetryPolicy 线性退避, 全部尝试失败时返回占位结果.
// Fetch 不返回错误, 每个商品都恰好得到一个结果.
type Fetcher struct {
	session   Session
	cfg       models.FetchConfig
	policy    RetryPolicy
	simulator *Simulator
	extractor *Extractor
	detector  *BlockDetector
	snapshots *SnapshotStore
	sleeper   Sleeper
	metrics   *Metrics
	now       func() time.Time
}

// FetcherOption 编排器选项
type FetcherOption func(*Fetcher)

// WithSleeper 替换退避等待
func WithSleeper(s Sleeper) FetcherOption {
	return func(f *Fetcher) { f.sleeper = s }
}

// WithClock 替换时钟, 决定 CollectedAt
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

// WithMetrics 设置指标
func WithMetrics(m *Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// WithSnapshotStore 设置快照存储
func WithSnapshotStore(s *SnapshotStore) FetcherOption {
	return func(f *Fetcher) { f.snapshots = s }
}

// WithSimulator 替换行为模拟器
func WithSimulator(s *Simulator) FetcherOption {
	return func(f *Fetcher) { f.simulator = s }
}

// WithExtractor 替换字段提取器
func WithExtractor(e *Extractor) FetcherOption {
	return func(f *Fetcher) { f.extractor = e }
}

// NewFetcher 创建编排器
func NewFetcher(session Session, cfg models.FetchConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		session:   session,
		cfg:       cfg,
		policy:    NewRetryPolicy(cfg),
		extractor: NewExtractor(nil, nil),
		detector:  NewBlockDetector(cfg.BlockPhrases),
		sleeper:   RealSleeper{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.simulator == nil {
		f.simulator = NewSimulator(models.DefaultProfile().Viewport, cfg.MicroDelayMin, cfg.MicroDelayMax, nil, f.sleeper)
	}
	return f
}

// Fetch 抓取一个商品
func (f *Fetcher) Fetch(ctx context.Context, itemID string) models.FetchResult {
	url := f.cfg.ItemURL(itemID)
	maxAttempts := f.policy.Attempts()
	attempts := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		attempts = attempt

		outcome := f.attempt(ctx, itemID, url, attempt)
		event := utils.Logger.Info()
		if outcome.Kind.Retryable() {
			event = utils.Logger.Warn().Err(outcome.Err)
		}
		event.
			Str("item_id", itemID).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Str("outcome", outcome.Kind.String()).
			Int("status", outcome.Status).
			Str("reason", outcome.Reason).
			Msg("抓取尝试结束")

		if !outcome.Kind.Retryable() {
			f.metrics.IncItem(string(models.StatusOK))
			return models.FetchResult{
				ItemID:      itemID,
				Title:       outcome.Fields.Title,
				Price:       outcome.Fields.Price,
				URL:         url,
				CollectedAt: f.now(),
				Status:      models.StatusOK,
				Attempts:    attempt,
			}
		}

		if attempt == maxAttempts {
			break
		}

		f.metrics.IncRetries()
		delay := f.policy.Backoff(attempt)
		utils.Debugf("⏳ 商品 %s 第%d次尝试失败, %s 后重试", itemID, attempt, delay)
		if err := f.sleeper.Sleep(ctx, delay); err != nil {
			break
		}
	}

	utils.Logger.Error().
		Str("item_id", itemID).
		Int("attempts", attempts).
		Msg("❌ 重试耗尽, 使用占位结果")
	f.metrics.IncItem(string(models.StatusExhausted))
	return models.ExhaustedResult(itemID, url, attempts, f.now())
}

// attempt 执行一次尝试, panic 视为传输错误
func (f *Fetcher) attempt(ctx context.Context, itemID, url string, n int) (out AttemptOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = AttemptOutcome{
				Kind:   OutcomeTransportError,
				Reason: "panic",
				Err:    fmt.Errorf("尝试过程中发生panic: %v", r),
			}
		}
		f.metrics.ObserveAttempt(out.Kind, time.Since(start))
	}()

	page, err := f.session.NewPage(ctx)
	if err != nil {
		return AttemptOutcome{Kind: OutcomeTransportError, Reason: "new_page", Err: err}
	}
	defer f.closePage(page, itemID, n)

	f.simulator.Simulate(ctx, page)

	navCtx, cancel := context.WithTimeout(ctx, f.cfg.NavTimeout)
	defer cancel()

	status, err := page.Navigate(navCtx, url)
	if err != nil && status >= 400 {
		// 空响应体的 4xx/5xx 会让 Chromium 以导航错误结束, 状态码仍然有效
		html, _ := page.HTML()
		kind, reason := f.detector.Classify(status, html)
		f.handleBlocked(itemID, n, page, html)
		return AttemptOutcome{Kind: kind, Status: status, Reason: reason, Err: err}
	}
	if err != nil {
		kind := classifyError(err)
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			kind = OutcomeTimeout
		}
		return AttemptOutcome{Kind: kind, Status: status, Reason: "navigate", Err: err}
	}

	html, err := page.HTML()
	if err != nil {
		utils.Logger.Warn().Err(err).Str("item_id", itemID).Msg("读取页面HTML失败")
		html = ""
	}

	kind, reason := f.detector.Classify(status, html)
	switch kind {
	case OutcomeBlocked:
		f.handleBlocked(itemID, n, page, html)
		return AttemptOutcome{Kind: kind, Status: status, Reason: reason}
	case OutcomeSuccess:
		return AttemptOutcome{
			Kind:   kind,
			Status: status,
			Fields: f.extractor.Extract(html, page),
		}
	default:
		return AttemptOutcome{Kind: kind, Status: status, Reason: reason}
	}
}

// handleBlocked 保存快照并清空 cookie, 失败只记录
func (f *Fetcher) handleBlocked(itemID string, attempt int, page Page, html string) {
	if f.snapshots.Enabled() {
		paths, err := f.snapshots.Save(itemID, attempt, page, html)
		if err != nil {
			utils.Logger.Warn().Err(err).Str("item_id", itemID).Msg("保存诊断快照失败")
		}
		if paths.HTML != "" || paths.Screenshot != "" {
			f.metrics.IncSnapshots()
		}
	}

	if err := f.session.ClearCookies(); err != nil {
		utils.Logger.Warn().Err(err).Str("item_id", itemID).Msg("清空cookie失败")
	}
}

// closePage 关闭失败只记录, 不影响本次结果
func (f *Fetcher) closePage(page Page, itemID string, attempt int) {
	defer func() {
		if r := recover(); r != nil {
			utils.Logger.Warn().Interface("panic", r).Str("item_id", itemID).Msg("关闭页面时发生panic")
		}
	}()
	if err := page.Close(); err != nil {
		utils.Logger.Warn().Err(err).Str("item_id", itemID).Int("attempt", attempt).Msg("关闭页面失败")
	}
}
