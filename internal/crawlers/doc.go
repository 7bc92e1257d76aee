// Package crawlers 提供商品页抓取引擎
//
// # 概述
//
// 一次运行共享一个 Session (浏览器隐身上下文或静态HTTP会话), 每次尝试在会话上
// 打开新的 Page, 尝试结束即关闭. Fetcher 负责重试状态机:
//
//	Idle → Attempting → {Success, Blocked, TransportError, Timeout} → (Retrying | Exhausted)
//
// # 核心组件
//
// ## BrowserSession
//
// 基于 go-rod 的 Chromium 会话. 页面通过 go-rod/stealth 创建, 再套用 Profile
// (视口、User-Agent、locale、时区、额外头部) 和身份注入脚本.
//
//	session, err := NewBrowserSession(ctx, cfg, profile, headerManager)
//	if errors.Is(err, ErrSessionLaunch) { /* 致命错误, 直接退出 */ }
//	defer session.Close()
//
// ## StaticSession
//
// 基于 Colly 的 HTTP 会话, 不支持截图和指针操作, 适合服务端直出的页面.
//
// ## Simulator
//
// 随机指针移动和滚动, 每步之后停顿 100ms-900ms. 单步失败不影响后续步骤.
//
// ## Extractor
//
// 按优先级尝试候选选择器提取标题和价格:
//   - 标题: h1.itemtit → .text__item-title → .box__item-title h1 → og:title → document.title → "Unknown"
//   - 价格: .price_real → .box__price .text__value → .price_innerwrap strong → .price → "N/A"
//
// 价格取第一段数字并去掉千分位, "12,345원" => "12345".
//
// ## BlockDetector
//
// 状态码 >= 400 或页面包含拦截短语视为 Blocked, 没有收到主文档响应视为 TransportError.
//
// ## Fetcher
//
//	fetcher := NewFetcher(session, cfg,
//	    WithSimulator(sim),
//	    WithSnapshotStore(NewSnapshotStore(afero.NewOsFs(), cfg.SnapshotDir)),
//	    WithMetrics(NewMetrics()),
//	)
//	result := fetcher.Fetch(ctx, "1920684660")
//
// 被拦截时在 SnapshotDir 下保存 <itemId>_attempt<N>.png/.html 并清空 cookie.
// 所有尝试失败时结果为 {Title: "Access Denied", Price: "N/A", Status: exhausted}.
package crawlers
