package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/RecoveryAshes/PriceWatch/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// StaticSession 纯 HTTP 会话, 不执行 JavaScript
// 适合服务端直出价格的页面, 资源占用远低于浏览器模式
type StaticSession struct {
	collector *colly.Collector
	headers   http.Header

	mu     sync.Mutex
	closed bool
}

// StaticSessionOption 静态会话选项
type StaticSessionOption func(*StaticSession)

// WithTransport 替换底层 RoundTripper (测试使用 httpmock)
func WithTransport(rt http.RoundTripper) StaticSessionOption {
	return func(s *StaticSession) {
		s.collector.WithTransport(rt)
	}
}

// NewStaticSession 创建静态会话
func NewStaticSession(cfg models.FetchConfig, profile models.Profile, provider models.HeaderProvider, opts ...StaticSessionOption) (*StaticSession, error) {
	headers := make(http.Header)
	if provider != nil {
		h, err := provider.GetHeaders()
		if err != nil {
			return nil, fmt.Errorf("加载请求头部失败: %w", err)
		}
		headers = h.Clone()
	}
	headers.Set("Accept-Language", profile.AcceptLanguage())
	headers.Del("User-Agent")

	c := colly.NewCollector(
		colly.UserAgent(profile.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(cfg.NavTimeout)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("创建 cookie jar 失败: %w", err)
	}
	c.SetCookieJar(jar)

	s := &StaticSession{
		collector: c,
		headers:   headers,
	}
	for _, opt := range opts {
		opt(s)
	}

	utils.Logger.Info().
		Str("user_agent", profile.UserAgent).
		Dur("timeout", cfg.NavTimeout).
		Msg("🚀 静态会话已创建")
	return s, nil
}

// NewPage 创建静态页面, 每个页面使用独立的 collector 副本
// 副本与会话共享 HTTP 客户端和 cookie jar
func (s *StaticSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return &staticPage{
		collector: s.collector.Clone(),
		headers:   s.headers.Clone(),
	}, nil
}

// ClearCookies 换用新的 cookie jar
func (s *StaticSession) ClearCookies() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("创建 cookie jar 失败: %w", err)
	}
	s.collector.SetCookieJar(jar)
	utils.Debugf("🍪 已清空静态会话 cookie")
	return nil
}

// Close 静态会话没有外部资源
func (s *StaticSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type staticPage struct {
	collector *colly.Collector
	headers   http.Header

	mu     sync.Mutex
	body   []byte
	closed bool
}

type staticResponse struct {
	status int
	body   []byte
	err    error
}

// Navigate 发送 GET 请求; HTTP 错误状态不视为错误, 由调用方分类
func (sp *staticPage) Navigate(ctx context.Context, url string) (int, error) {
	done := make(chan staticResponse, 1)
	deliver := func(resp staticResponse) {
		select {
		case done <- resp:
		default:
		}
	}

	sp.collector.OnResponse(func(r *colly.Response) {
		body, err := decompressResponse(r.Headers.Get("Content-Encoding"), r.Body)
		if err != nil {
			utils.Warnf("解压响应失败 [%s]: %v", url, err)
			body = r.Body
		}
		deliver(staticResponse{status: r.StatusCode, body: body})
	})
	sp.collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			body, _ := decompressResponse(r.Headers.Get("Content-Encoding"), r.Body)
			deliver(staticResponse{status: r.StatusCode, body: body})
			return
		}
		deliver(staticResponse{err: err})
	})

	go func() {
		if err := sp.collector.Request(http.MethodGet, url, nil, colly.NewContext(), sp.headers); err != nil {
			deliver(staticResponse{err: err})
		}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case resp := <-done:
		if resp.err != nil {
			return 0, resp.err
		}
		sp.mu.Lock()
		sp.body = resp.body
		sp.mu.Unlock()
		return resp.status, nil
	}
}

func (sp *staticPage) HTML() (string, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.body == nil {
		return "", fmt.Errorf("页面尚未加载")
	}
	return string(sp.body), nil
}

func (sp *staticPage) Title() (string, error) {
	html, err := sp.HTML()
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (sp *staticPage) Screenshot() ([]byte, error) { return nil, ErrUnsupported }

func (sp *staticPage) MoveMouse(x, y float64) error { return ErrUnsupported }

func (sp *staticPage) Scroll(dy float64) error { return ErrUnsupported }

func (sp *staticPage) Close() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.closed = true
	sp.body = nil
	return nil
}

// decompressResponse 根据 Content-Encoding 解压响应体
// colly 可能已经解开 gzip, 此时按魔数判断直接返回原文
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
