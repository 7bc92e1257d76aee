package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/RecoveryAshes/PriceWatch/internal/core"
	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/shirou/gopsutil/v3/mem"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  PriceWatch 运行环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	// 检查Go版本
	goVersion := runtime.Version()
	fmt.Printf("✅ Go版本: %s\n", goVersion)
	if !strings.HasPrefix(goVersion, "go1.25") &&
		!strings.HasPrefix(goVersion, "go1.26") {
		fmt.Println("⚠️  警告: 建议使用Go 1.25+版本")
	}

	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 检查内存, 浏览器模式下 Chromium 至少需要数百MB
	if vm, err := mem.VirtualMemory(); err == nil {
		availableMB := vm.Available / 1024 / 1024
		if availableMB < 512 {
			fmt.Printf("⚠️  可用内存较少: %dMB, 浏览器模式可能不稳定\n", availableMB)
		} else {
			fmt.Printf("✅ 可用内存: %dMB\n", availableMB)
		}
	}

	// 检查Chromium
	if path, found := launcher.LookPath(); found {
		fmt.Printf("✅ 浏览器: %s\n", path)
	} else {
		fmt.Println("⚠️  未找到本地Chromium - 首次运行浏览器模式时会自动下载")
		fmt.Println("   也可以使用 --mode static 以纯HTTP方式抓取")
	}

	// 检查配置
	fmt.Println()
	fmt.Println("检查配置...")
	cfg, err := core.LoadConfig("")
	if err != nil {
		fmt.Printf("❌ 加载配置失败: %v\n", err)
		allOK = false
	} else if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ 配置无效: %v\n", err)
		allOK = false
	} else {
		fmt.Printf("✅ 配置有效: 模式=%s, 商品数=%d\n", cfg.Fetch.Mode, len(cfg.Items))
		if len(cfg.Items) == 0 {
			fmt.Println("⚠️  配置中没有商品, 运行时需要通过参数或 -f 指定")
		}
		if cfg.Fetch.Mode == models.ModeDynamic && !cfg.Fetch.Headless && os.Getenv("DISPLAY") == "" && runtime.GOOS == "linux" {
			fmt.Println("⚠️  headless=false 但没有 DISPLAY, cron 中请使用无头模式")
		}
		if cfg.Notify.Telegram.Enabled() {
			fmt.Println("✅ Telegram 已配置")
		} else {
			fmt.Println("⚠️  Telegram 未配置 - 设置 TELEGRAM_TOKEN 和 TELEGRAM_CHAT_ID 后才会发送通知")
		}
		if err := checkWritable(cfg.Output.BaseDir); err != nil {
			fmt.Printf("❌ 输出目录不可写: %v\n", err)
			allOK = false
		} else {
			fmt.Printf("✅ 输出目录可写: %s\n", cfg.Output.BaseDir)
		}
	}

	// 检查项目结构
	fmt.Println()
	fmt.Println("检查项目结构...")
	requiredDirs := []string{
		"cmd/pricewatch",
		"internal/core",
		"internal/crawlers",
		"internal/notify",
		"internal/utils",
		"internal/models",
		"configs",
	}

	for _, dir := range requiredDirs {
		if _, err := os.Stat(dir); err == nil {
			fmt.Printf("✅ %s/\n", dir)
		} else {
			fmt.Printf("❌ %s/ 不存在\n", dir)
			allOK = false
		}
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build -o pricewatch ./cmd/pricewatch' 构建")
		fmt.Println("  2. 运行 './pricewatch validate-config' 检查头部配置")
		fmt.Println("  3. 运行 './pricewatch --dry-run 1920684660' 试抓一个商品")
		os.Exit(0)
	} else {
		fmt.Println("❌ 环境验证失败,请解决上述问题。")
		os.Exit(1)
	}
}

// checkWritable 创建目录并写入临时文件
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".pricewatch_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return err
	}
	return os.Remove(probe)
}
