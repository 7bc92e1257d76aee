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
	"github.com/spf13/afero"
)

// SessionFactory 按配置创建会话
type SessionFactory func(ctx context.Context, cfg *Config, headers models.HeaderProvider) (crawlers.Session, error)

// Watcher 一次完整运行的协调者: 会话 → 批量抓取 → 通知 → 报告
type Watcher struct {
	cfg        *Config
	headers    models.HeaderProvider
	notifier   notify.Notifier
	newSession SessionFactory
	fs         afero.Fs
	metrics    *crawlers.Metrics
	now        func() time.Time

	fetcherOpts []crawlers.FetcherOption
	batchOpts   []BatchOption
}

// WatcherOption 选项
type WatcherOption func(*Watcher)

// WithNotifier 替换通知器
func WithNotifier(n notify.Notifier) WatcherOption {
	return func(w *Watcher) { w.notifier = n }
}

// WithSessionFactory 替换会话创建
func WithSessionFactory(f SessionFactory) WatcherOption {
	return func(w *Watcher) { w.newSession = f }
}

// WithFs 快照使用的文件系统
func WithFs(fs afero.Fs) WatcherOption {
	return func(w *Watcher) { w.fs = fs }
}

// WithFetcherOptions 追加编排器选项
func WithFetcherOptions(opts ...crawlers.FetcherOption) WatcherOption {
	return func(w *Watcher) { w.fetcherOpts = append(w.fetcherOpts, opts...) }
}

// WithBatchOptions 追加批量运行选项
func WithBatchOptions(opts ...BatchOption) WatcherOption {
	return func(w *Watcher) { w.batchOpts = append(w.batchOpts, opts...) }
}

// NewWatcher 创建协调者
func NewWatcher(cfg *Config, headers models.HeaderProvider, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		cfg:        cfg,
		headers:    headers,
		newSession: OpenSession,
		fs:         afero.NewOsFs(),
		metrics:    crawlers.NewMetrics(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.notifier == nil {
		w.notifier = BuildNotifier(cfg.Notify, false)
	}
	return w
}

// Metrics 本次运行的指标
func (w *Watcher) Metrics() *crawlers.Metrics {
	return w.metrics
}

// OpenSession 按抓取模式创建会话
func OpenSession(ctx context.Context, cfg *Config, headers models.HeaderProvider) (crawlers.Session, error) {
	if cfg.Fetch.Mode == models.ModeStatic {
		session, err := crawlers.NewStaticSession(cfg.Fetch, cfg.Profile, headers)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	session, err := crawlers.NewBrowserSession(ctx, cfg.Fetch, cfg.Profile, headers)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// BuildNotifier 配置了 Telegram 且不是演练时发送到 Telegram, 否则写日志
func BuildNotifier(cfg NotifyConfig, dryRun bool) notify.Notifier {
	opts := notify.DigestOptions{SkipMissingPrice: cfg.SkipMissingPrice}
	if dryRun || !cfg.Telegram.Enabled() {
		if !dryRun {
			utils.Warn("Telegram token/chat_id 未设置, 结果只输出到日志")
		}
		return &notify.LogNotifier{Options: opts}
	}
	return notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID,
		notify.WithAPIBase(cfg.Telegram.APIBase),
		notify.WithTimeout(cfg.Telegram.Timeout),
		notify.WithDigestOptions(opts),
	)
}

// Run 执行一次运行, 返回报告
// 会话创建失败是唯一的致命错误; 通知失败返回 ErrNotifyFailed 但报告仍然完整
func (w *Watcher) Run(ctx context.Context, itemIDs []string) (*models.RunReport, error) {
	ids, err := models.NormalizeItemIDs(itemIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("没有要抓取的商品")
	}

	runID := models.NewRunID()
	start := w.now()
	utils.Logger.Info().
		Str("run_id", runID).
		Str("mode", string(w.cfg.Fetch.Mode)).
		Int("items", len(ids)).
		Msg("▶️  开始运行")

	session, err := w.newSession(ctx, w.cfg, w.headers)
	if err != nil {
		return nil, fmt.Errorf("创建会话失败: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			utils.Logger.Warn().Err(err).Str("run_id", runID).Msg("关闭会话失败")
		}
	}()

	results, runErr := NewBatchRunner(w.newFetcher(session), w.notifier, w.cfg.Fetch,
		append([]BatchOption{WithProgress(w.cfg.Output.Progress)}, w.batchOpts...)...,
	).Run(ctx, ids)

	report := models.NewRunReport(runID, w.cfg.Fetch, start, w.now(), results)
	if errors.Is(runErr, ErrNotifyFailed) {
		report.NotifyError = runErr.Error()
	}

	if w.cfg.Output.Report {
		if _, err := utils.NewReporter(w.cfg.Output.BaseDir).SaveRunReport(report); err != nil {
			utils.Logger.Warn().Err(err).Str("run_id", runID).Msg("保存运行报告失败")
		}
	}
	if err := w.metrics.WriteTextfile(w.cfg.Metrics.Textfile); err != nil {
		utils.Logger.Warn().Err(err).Str("path", w.cfg.Metrics.Textfile).Msg("写入指标文件失败")
	}

	utils.Logger.Info().
		Str("run_id", runID).
		Int("priced", report.Stats.PricedItems).
		Int("blocked", report.Stats.BlockedItems).
		Msg("⏹️  运行结束")
	return report, runErr
}

func (w *Watcher) newFetcher(session crawlers.Session) *crawlers.Fetcher {
	cfg := w.cfg
	opts := []crawlers.FetcherOption{
		crawlers.WithMetrics(w.metrics),
		crawlers.WithClock(w.now),
		crawlers.WithSnapshotStore(crawlers.NewSnapshotStore(w.fs, cfg.Fetch.SnapshotDir)),
		crawlers.WithExtractor(crawlers.NewExtractor(
			parseCandidates(cfg.Extract.TitleSelectors),
			parseCandidates(cfg.Extract.PriceSelectors),
		)),
		crawlers.WithSimulator(crawlers.NewSimulator(cfg.Profile.Viewport,
			cfg.Fetch.MicroDelayMin, cfg.Fetch.MicroDelayMax, nil, nil)),
	}
	return crawlers.NewFetcher(session, cfg.Fetch, append(opts, w.fetcherOpts...)...)
}

func parseCandidates(selectors []string) []crawlers.Candidate {
	out := make([]crawlers.Candidate, 0, len(selectors))
	for _, s := range selectors {
		if c := crawlers.ParseCandidate(s); c.Selector != "" {
			out = append(out, c)
		}
	}
	return out
}
