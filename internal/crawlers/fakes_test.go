package crawlers

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeStep 描述第 N 次打开的页面的行为
type fakeStep struct {
	status        int
	html          string
	title         string
	navErr        error
	htmlErr       error
	titleErr      error
	screenshotErr error
	closeErr      error
	interactErr   error
	newPageErr    error
	navPanic      bool
}

type fakeSession struct {
	mu       sync.Mutex
	steps    []fakeStep
	calls    int // NewPage 调用次数
	opened   int // 成功打开的页面数
	closed   int
	cleared  int
	clearErr error
	pages    []*fakePage
	urls     []string
}

func newFakeSession(steps ...fakeStep) *fakeSession {
	return &fakeSession{steps: steps}
}

func (s *fakeSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.calls
	s.calls++
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	step := s.steps[idx]
	if step.newPageErr != nil {
		return nil, step.newPageErr
	}

	s.opened++
	p := &fakePage{session: s, step: step}
	s.pages = append(s.pages, p)
	return p, nil
}

func (s *fakeSession) ClearCookies() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	return s.clearErr
}

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) counts() (opened, closed, cleared int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed, s.cleared
}

type fakePage struct {
	session *fakeSession
	step    fakeStep

	mu         sync.Mutex
	navigated  bool
	moves      int
	scrolls    int
	closeCount int
}

func (p *fakePage) Navigate(ctx context.Context, url string) (int, error) {
	if p.step.navPanic {
		panic("renderer crashed")
	}
	p.session.mu.Lock()
	p.session.urls = append(p.session.urls, url)
	p.session.mu.Unlock()

	p.mu.Lock()
	p.navigated = true
	p.mu.Unlock()
	if p.step.navErr != nil {
		return p.step.status, p.step.navErr
	}
	return p.step.status, nil
}

func (p *fakePage) HTML() (string, error) {
	if p.step.htmlErr != nil {
		return "", p.step.htmlErr
	}
	return p.step.html, nil
}

func (p *fakePage) Title() (string, error) {
	if p.step.titleErr != nil {
		return "", p.step.titleErr
	}
	return p.step.title, nil
}

func (p *fakePage) Screenshot() ([]byte, error) {
	if p.step.screenshotErr != nil {
		return nil, p.step.screenshotErr
	}
	return []byte("\x89PNG fake"), nil
}

func (p *fakePage) MoveMouse(x, y float64) error {
	p.mu.Lock()
	p.moves++
	p.mu.Unlock()
	return p.step.interactErr
}

func (p *fakePage) Scroll(dy float64) error {
	p.mu.Lock()
	p.scrolls++
	p.mu.Unlock()
	return p.step.interactErr
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	p.closeCount++
	p.mu.Unlock()

	p.session.mu.Lock()
	p.session.closed++
	p.session.mu.Unlock()
	return p.step.closeErr
}

// recordingSleeper 记录等待时长, 不真正等待
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type noopSleeper struct{}

func (noopSleeper) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

var (
	errConnReset           = errors.New("net::ERR_CONNECTION_RESET")
	errResponseCodeFailure = errors.New("net::ERR_HTTP_RESPONSE_CODE_FAILURE")
)
