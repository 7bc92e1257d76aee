package crawlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/RecoveryAshes/PriceWatch/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// 由浏览器自身管理的头部, 不通过 SetExtraHeaders 覆盖
// SetExtraHeaders 作用于页面的所有子资源请求, 导航专用的头部只由静态会话发送
var browserManagedHeaders = map[string]bool{
	"User-Agent":                true,
	"Accept-Language":           true,
	"Accept-Encoding":           true,
	"Accept":                    true,
	"Upgrade-Insecure-Requests": true,
}

// BrowserSession 基于 Chromium 隐身上下文的浏览会话
type BrowserSession struct {
	profile      models.Profile
	extraHeaders []string
	script       string

	launcher  *launcher.Launcher
	browser   *rod.Browser
	incognito *rod.Browser

	mu     sync.Mutex
	closed bool
}

// NewBrowserSession 启动浏览器并创建隐身上下文
// 启动或连接失败返回 ErrSessionLaunch, 调用方应直接终止运行
func NewBrowserSession(ctx context.Context, cfg models.FetchConfig, profile models.Profile, headers models.HeaderProvider) (*BrowserSession, error) {
	extra, err := collectExtraHeaders(headers)
	if err != nil {
		return nil, err
	}

	if ok, reason := NewResourceMonitor(DefaultResourceMonitorConfig()).Preflight(); !ok {
		utils.Warnf("⚠️  资源紧张, 浏览器可能不稳定: %s", reason)
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("lang", profile.Locale).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", fmt.Sprintf("%d,%d", profile.Viewport.Width, profile.Viewport.Height))
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: 启动浏览器失败: %w", ErrSessionLaunch, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: 连接浏览器失败: %w", ErrSessionLaunch, err)
	}

	incognito, err := browser.Incognito()
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("%w: 创建隐身上下文失败: %w", ErrSessionLaunch, err)
	}

	utils.Logger.Info().
		Bool("headless", cfg.Headless).
		Str("locale", profile.Locale).
		Str("timezone", profile.Timezone).
		Int("extra_headers", len(extra)/2).
		Msg("🚀 浏览器会话已启动")

	return &BrowserSession{
		profile:      profile,
		extraHeaders: extra,
		script:       buildIdentityScript(profile),
		launcher:     l,
		browser:      browser,
		incognito:    incognito,
	}, nil
}

// collectExtraHeaders 转为 SetExtraHeaders 需要的 name, value 交替列表
func collectExtraHeaders(provider models.HeaderProvider) ([]string, error) {
	if provider == nil {
		return nil, nil
	}
	headers, err := provider.GetHeaders()
	if err != nil {
		return nil, fmt.Errorf("加载请求头部失败: %w", err)
	}

	dict := make([]string, 0, len(headers)*2)
	for name, value := range models.FlattenHeaders(headers) {
		if browserManagedHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		dict = append(dict, name, value)
	}
	return dict, nil
}

// NewPage 创建一个套用身份配置的新页面
func (s *BrowserSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	page, err := stealth.Page(s.incognito)
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}

	if err := s.applyProfile(page.Context(ctx)); err != nil {
		if closeErr := page.Close(); closeErr != nil {
			utils.Logger.Warn().Err(closeErr).Msg("关闭页面失败")
		}
		return nil, err
	}

	return &rodPage{page: page}, nil
}

func (s *BrowserSession) applyProfile(page *rod.Page) error {
	p := s.profile

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             p.Viewport.Width,
		Height:            p.Viewport.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("设置视口失败: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      p.UserAgent,
		AcceptLanguage: p.AcceptLanguage(),
		Platform:       p.Platform,
	}); err != nil {
		return fmt.Errorf("设置 User-Agent 失败: %w", err)
	}

	if err := (proto.EmulationSetLocaleOverride{Locale: p.Locale}).Call(page); err != nil {
		return fmt.Errorf("设置 locale 失败: %w", err)
	}

	if p.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: p.Timezone}).Call(page); err != nil {
			return fmt.Errorf("设置时区失败: %w", err)
		}
	}

	if len(s.extraHeaders) > 0 {
		if _, err := page.SetExtraHeaders(s.extraHeaders); err != nil {
			return fmt.Errorf("设置额外头部失败: %w", err)
		}
	}

	if _, err := page.EvalOnNewDocument(s.script); err != nil {
		return fmt.Errorf("注入身份脚本失败: %w", err)
	}
	return nil
}

// ClearCookies 清空隐身上下文的全部 cookie
func (s *BrowserSession) ClearCookies() error {
	if err := s.incognito.SetCookies(nil); err != nil {
		return fmt.Errorf("清空 cookie 失败: %w", err)
	}
	utils.Debugf("🍪 已清空会话 cookie")
	return nil
}

// Close 关闭隐身上下文和浏览器, 重复调用无副作用
func (s *BrowserSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.incognito.Close(); err != nil {
		utils.Logger.Warn().Err(err).Msg("关闭隐身上下文失败")
	}
	err := s.browser.Close()
	s.launcher.Cleanup()

	utils.Debugf("浏览器已关闭")
	if err != nil {
		return fmt.Errorf("关闭浏览器失败: %w", err)
	}
	return nil
}

// rodPage 基于 rod.Page 的页面实现
type rodPage struct {
	page *rod.Page
}

// Navigate 导航并等待 DOMContentLoaded, 同时记录主文档的响应状态
func (rp *rodPage) Navigate(ctx context.Context, url string) (int, error) {
	p := rp.page.Context(ctx)

	statusCh := make(chan int, 1)
	waitDocument := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		select {
		case statusCh <- e.Response.Status:
		default:
		}
		return true
	})
	go waitDocument()

	waitDOM := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return readStatus(statusCh), err
	}
	waitDOM()

	if err := ctx.Err(); err != nil {
		return readStatus(statusCh), err
	}
	return readStatus(statusCh), nil
}

func readStatus(ch <-chan int) int {
	select {
	case status := <-ch:
		return status
	default:
		return 0
	}
}

func (rp *rodPage) HTML() (string, error) {
	return rp.page.HTML()
}

func (rp *rodPage) Title() (string, error) {
	res, err := rp.page.Eval(`() => document.title`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (rp *rodPage) Screenshot() ([]byte, error) {
	return rp.page.Screenshot(true, nil)
}

func (rp *rodPage) MoveMouse(x, y float64) error {
	return rp.page.Mouse.MoveTo(proto.Point{X: x, Y: y})
}

func (rp *rodPage) Scroll(dy float64) error {
	return rp.page.Mouse.Scroll(0, dy, 4)
}

func (rp *rodPage) Close() error {
	return rp.page.Close()
}
