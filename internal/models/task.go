package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // 精简镜像中没有系统时区数据
)

// FetchMode 抓取模式
type FetchMode string

const (
	ModeDynamic FetchMode = "dynamic" // 浏览器渲染 (默认)
	ModeStatic  FetchMode = "static"  // 纯HTTP请求, 不执行JS
)

// ParseFetchMode 解析抓取模式字符串, 空串视为动态模式
func ParseFetchMode(s string) (FetchMode, error) {
	switch FetchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDynamic:
		return ModeDynamic, nil
	case ModeStatic:
		return ModeStatic, nil
	default:
		return "", fmt.Errorf("未知的抓取模式: %s (可选: dynamic, static)", s)
	}
}

// Viewport 浏览器视口尺寸
type Viewport struct {
	Width  int `mapstructure:"width" json:"width"`
	Height int `mapstructure:"height" json:"height"`
}

// Profile 浏览器身份配置
// 每个页面创建时都会套用同一个身份, 保证一次运行内指纹一致
type Profile struct {
	Viewport  Viewport `mapstructure:"viewport" json:"viewport"`
	Locale    string   `mapstructure:"locale" json:"locale"`
	UserAgent string   `mapstructure:"user_agent" json:"user_agent"`
	Timezone  string   `mapstructure:"timezone" json:"timezone"`
	Platform  string   `mapstructure:"platform" json:"platform"`
}

// DefaultProfile 默认身份: 韩国地区的 Windows Chrome
func DefaultProfile() Profile {
	return Profile{
		Viewport:  Viewport{Width: 1366, Height: 768},
		Locale:    "ko-KR",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
		Timezone:  "Asia/Seoul",
		Platform:  "Win32",
	}
}

// Languages 根据 locale 推导 navigator.languages
// ko-KR => [ko-KR ko en-US en]
func (p Profile) Languages() []string {
	langs := make([]string, 0, 4)
	seen := make(map[string]bool)
	add := func(l string) {
		if l != "" && !seen[l] {
			seen[l] = true
			langs = append(langs, l)
		}
	}

	add(p.Locale)
	if base, _, ok := strings.Cut(p.Locale, "-"); ok {
		add(base)
	}
	add("en-US")
	add("en")
	return langs
}

// AcceptLanguage 生成 Accept-Language 头部值
func (p Profile) AcceptLanguage() string {
	langs := p.Languages()
	parts := make([]string, 0, len(langs))
	for i, l := range langs {
		if i == 0 {
			parts = append(parts, l)
			continue
		}
		q := 1.0 - float64(i)*0.1
		parts = append(parts, fmt.Sprintf("%s;q=%.1f", l, q))
	}
	return strings.Join(parts, ",")
}

// Validate 验证身份配置
func (p Profile) Validate() error {
	if p.Viewport.Width < 320 || p.Viewport.Height < 240 {
		return fmt.Errorf("视口尺寸过小: %dx%d", p.Viewport.Width, p.Viewport.Height)
	}
	if p.Locale == "" {
		return fmt.Errorf("locale 不能为空")
	}
	if p.UserAgent == "" {
		return fmt.Errorf("user_agent 不能为空")
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("无效的时区 %q: %w", p.Timezone, err)
		}
	}
	return nil
}

// FetchConfig 抓取配置
type FetchConfig struct {
	Host             string        `mapstructure:"host" json:"host"`                           // 商品页主机名
	Mode             FetchMode     `mapstructure:"mode" json:"mode"`                           // 抓取模式
	MaxAttempts      int           `mapstructure:"max_attempts" json:"max_attempts"`           // 单个商品最大尝试次数 (默认:3)
	BackoffBase      time.Duration `mapstructure:"backoff_base" json:"backoff_base"`           // 退避基础时长
	BackoffIncrement time.Duration `mapstructure:"backoff_increment" json:"backoff_increment"` // 每次尝试增加的退避时长
	NavTimeout       time.Duration `mapstructure:"nav_timeout" json:"nav_timeout"`             // 导航超时 (默认:20s)
	PacingMin        time.Duration `mapstructure:"pacing_min" json:"pacing_min"`               // 商品间最小间隔
	PacingMax        time.Duration `mapstructure:"pacing_max" json:"pacing_max"`               // 商品间最大间隔
	MicroDelayMin    time.Duration `mapstructure:"micro_delay_min" json:"micro_delay_min"`     // 模拟操作最小停顿
	MicroDelayMax    time.Duration `mapstructure:"micro_delay_max" json:"micro_delay_max"`     // 模拟操作最大停顿
	BlockPhrases     []string      `mapstructure:"block_phrases" json:"block_phrases"`         // 拦截页特征短语
	Headless         bool          `mapstructure:"headless" json:"headless"`                   // 无头模式 (默认:true)
	BrowserBin       string        `mapstructure:"browser_bin" json:"browser_bin,omitempty"`
	SnapshotDir      string        `mapstructure:"snapshot_dir" json:"snapshot_dir"` // 拦截截图目录
}

// DefaultBlockPhrases 默认拦截页特征短语 (大小写不敏感)
var DefaultBlockPhrases = []string{
	"access denied",
	"verify you are human",
	"attention required",
	"just a moment",
	"too many requests",
	"비정상적인 접근",
	"접근이 차단",
}

// DefaultFetchConfig 默认抓取配置
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Host:             "item.gmarket.co.kr",
		Mode:             ModeDynamic,
		MaxAttempts:      3,
		BackoffBase:      2 * time.Second,
		BackoffIncrement: 3 * time.Second,
		NavTimeout:       20 * time.Second,
		PacingMin:        2 * time.Second,
		PacingMax:        6 * time.Second,
		MicroDelayMin:    100 * time.Millisecond,
		MicroDelayMax:    900 * time.Millisecond,
		BlockPhrases:     append([]string(nil), DefaultBlockPhrases...),
		Headless:         true,
		SnapshotDir:      "output/snapshots",
	}
}

// Validate 验证配置
func (c *FetchConfig) Validate() error {
	if c.Host == "" || strings.ContainsAny(c.Host, "/?# ") {
		return fmt.Errorf("无效的主机名: %q", c.Host)
	}
	if _, err := ParseFetchMode(string(c.Mode)); err != nil {
		return err
	}
	if c.MaxAttempts < 1 || c.MaxAttempts > 10 {
		return fmt.Errorf("最大尝试次数必须在1-10之间")
	}
	if c.BackoffBase < 0 || c.BackoffIncrement < 0 {
		return fmt.Errorf("退避时长不能为负数")
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("导航超时必须大于0")
	}
	if c.PacingMin < 0 || c.PacingMax < c.PacingMin {
		return fmt.Errorf("商品间隔范围无效: %s - %s", c.PacingMin, c.PacingMax)
	}
	if c.MicroDelayMin < 0 || c.MicroDelayMax < c.MicroDelayMin {
		return fmt.Errorf("操作停顿范围无效: %s - %s", c.MicroDelayMin, c.MicroDelayMax)
	}
	return nil
}

// ItemURL 拼接商品页地址: https://<host>/Item?goodscode=<itemId>
func (c *FetchConfig) ItemURL(itemID string) string {
	u := url.URL{
		Scheme:   "https",
		Host:     c.Host,
		Path:     "/Item",
		RawQuery: url.Values{"goodscode": {itemID}}.Encode(),
	}
	return u.String()
}
