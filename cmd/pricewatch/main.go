package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/RecoveryAshes/PriceWatch/internal/core"
	"github.com/RecoveryAshes/PriceWatch/internal/utils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	configFile  string
	logLevel    string
	headers     []string
	headersFile string

	items     []string
	itemsFile string
	mode      string
	headless  bool
	attempts  int
	dryRun    bool
	outputDir string
)

// appConfig 在 PersistentPreRunE 中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "pricewatch [商品编号或商品页地址...]",
	Short: "G마켓 商品价格监控",
	Long: `PriceWatch - G마켓 商品价格抓取与通知工具

按顺序打开每个商品页, 提取商品名和价格, 汇总后发送到 Telegram:
  • 浏览器模式 (go-rod + stealth) 与纯 HTTP 模式
  • 模拟鼠标移动和滚动, 商品之间随机间隔
  • 被拦截时保存截图/HTML 快照, 清空 cookie 后线性退避重试
  • 运行报告 (JSON) 与 Prometheus 指标文件

示例:
  pricewatch 1920684660 2701336763
  pricewatch run -f items.txt --mode static
  pricewatch --items 1920684660 --dry-run -H "Referer: https://www.gmarket.co.kr/"
  TELEGRAM_TOKEN=... TELEGRAM_CHAT_ID=... pricewatch run

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:           Version,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runWatch,
}

var runCmd = &cobra.Command{
	Use:   "run [商品编号或商品页地址...]",
	Short: "抓取商品价格并发送通知 (默认命令)",
	Args:  cobra.ArbitraryArgs,
	RunE:  runWatch,
}

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "验证配置文件和HTTP头部配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		utils.Info("🔍 验证配置...")
		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("配置验证失败: %w", err)
		}

		headerManager, err := core.NewHeaderManager(headersFile, headers, appConfig.Profile)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}
		if err := headerManager.LoadConfig(); err != nil {
			return fmt.Errorf("加载头部配置失败: %w", err)
		}
		if err := headerManager.Validate(); err != nil {
			return fmt.Errorf("头部配置验证失败: %w", err)
		}

		safeHeaders := headerManager.GetSafeHeaders()
		names := make([]string, 0, len(safeHeaders))
		for name := range safeHeaders {
			names = append(names, name)
		}
		sort.Strings(names)

		utils.Info("✅ 配置验证通过!")
		utils.Infof("抓取模式: %s, 最大尝试次数: %d, 导航超时: %s",
			appConfig.Fetch.Mode, appConfig.Fetch.MaxAttempts, appConfig.Fetch.NavTimeout)
		utils.Infof("当前有效的HTTP头部 (%d个):", len(names))
		for _, name := range names {
			utils.Infof("  %s: %s", name, safeHeaders[name])
		}
		if !appConfig.Notify.Telegram.Enabled() {
			utils.Warn("Telegram 未配置, 结果只会输出到日志")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("PriceWatch %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// setup 加载配置, 合并命令行参数, 初始化日志
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	config, err := core.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	overrides := core.CLIOverrides{
		Mode:      mode,
		Attempts:  attempts,
		OutputDir: outputDir,
		LogLevel:  logLevel,
	}
	if f := cmd.Flags().Lookup("headless"); f != nil && f.Changed {
		overrides.Headless = &headless
	}
	config.MergeCLIFlags(overrides)
	if headersFile == "" {
		headersFile = config.Headers.File
	}

	logConfig := utils.LogConfig{
		Level:      config.Logging.Level,
		LogDir:     config.Logging.LogDir,
		MaxSize:    config.Logging.Rotation.MaxSize,
		MaxBackups: config.Logging.Rotation.MaxBackups,
		MaxAge:     config.Logging.Rotation.MaxAge,
		Compress:   config.Logging.Rotation.Compress,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	}
	if err := utils.InitLogger(logConfig); err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}

	appConfig = config
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ids, err := collectItems(items, args, itemsFile, appConfig.Items)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return cmd.Help()
	}

	appConfig.Items = ids
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	headerManager, err := core.NewHeaderManager(headersFile, headers, appConfig.Profile)
	if err != nil {
		return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	if err := headerManager.LoadConfig(); err != nil {
		return fmt.Errorf("加载头部配置失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("头部配置验证失败: %w", err)
	}
	utils.Logger.Debug().Interface("headers", headerManager.GetSafeHeaders()).Msg("请求头部")

	// Ctrl+C 取消后剩余商品直接得到占位结果
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := core.NewWatcher(appConfig, headerManager,
		core.WithNotifier(core.BuildNotifier(appConfig.Notify, dryRun)),
	)
	report, err := watcher.Run(ctx, ids)
	if errors.Is(err, core.ErrNotifyFailed) {
		utils.Warnf("⚠️  %v", err)
		err = nil
	}
	if err != nil {
		return err
	}

	utils.Infof("✨ 运行完成: %d个商品, %d个取到价格, %d个被拦截",
		report.Stats.TotalItems, report.Stats.PricedItems, report.Stats.BlockedItems)
	return nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认搜索 ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "附加HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().StringVar(&headersFile, "headers-file", "", "HTTP头部配置文件 (默认 configs/headers.yaml)")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "", "抓取模式 (dynamic|static)")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.PersistentFlags().IntVar(&attempts, "attempts", 0, "单个商品最大尝试次数 (1-10)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "输出目录 (报告和快照)")

	// 运行参数
	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().StringSliceVar(&items, "items", []string{}, "商品编号列表,逗号分隔")
		cmd.Flags().StringVarP(&itemsFile, "items-file", "f", "", "商品列表文件,每行一个编号或商品页地址")
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "只输出到日志,不发送Telegram")
	}

	rootCmd.AddCommand(runCmd, validateConfigCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
