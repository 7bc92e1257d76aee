package crawlers

import (
	"context"
	"errors"
)

var (
	// ErrSessionLaunch 浏览器启动或连接失败, 属于致命错误, 不重试
	ErrSessionLaunch = errors.New("会话启动失败")

	// ErrUnsupported 当前会话类型不支持该操作 (如静态模式截图)
	ErrUnsupported = errors.New("当前模式不支持该操作")

	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("会话已关闭")
)

// Page 单次尝试使用的页面
// 每次尝试都创建新页面, 尝试结束时必须 Close
type Page interface {
	// Navigate 导航到 url, 等待 DOMContentLoaded
	// 返回主文档的 HTTP 状态码, 没有收到文档响应时为 0
	Navigate(ctx context.Context, url string) (status int, err error)

	// HTML 当前文档的完整 HTML
	HTML() (string, error)

	// Title 文档标题 (document.title)
	Title() (string, error)

	// Screenshot 整页截图 (PNG)
	Screenshot() ([]byte, error)

	// MoveMouse 移动指针到视口坐标
	MoveMouse(x, y float64) error

	// Scroll 垂直滚动 dy 像素
	Scroll(dy float64) error

	Close() error
}

// Session 一次运行共享的浏览会话
// 会话内的所有页面共享 cookie 和身份配置
type Session interface {
	NewPage(ctx context.Context) (Page, error)

	// ClearCookies 清空会话的 cookie, 被拦截后调用
	ClearCookies() error

	Close() error
}
