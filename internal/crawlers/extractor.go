package crawlers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// priceRunPattern 第一段连续的数字和千分位逗号
var priceRunPattern = regexp.MustCompile(`\d[\d,]*`)

// Candidate 候选定位器
// Attr 为空时取元素文本, 否则取属性值
type Candidate struct {
	Selector string
	Attr     string
}

// ParseCandidate 解析 "selector@attr" 形式的配置
func ParseCandidate(s string) Candidate {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "@"); i > 0 && !strings.ContainsAny(s[i+1:], "[]=\"' ") {
		return Candidate{Selector: strings.TrimSpace(s[:i]), Attr: s[i+1:]}
	}
	return Candidate{Selector: s}
}

// DefaultTitleCandidates 标题候选, 按优先级排列
var DefaultTitleCandidates = []Candidate{
	{Selector: "h1.itemtit"},
	{Selector: ".text__item-title"},
	{Selector: ".box__item-title h1"},
	{Selector: `meta[property="og:title"]`, Attr: "content"},
}

// DefaultPriceCandidates 价格候选, 按优先级排列
var DefaultPriceCandidates = []Candidate{
	{Selector: ".price_real"},
	{Selector: ".box__price .text__value"},
	{Selector: ".price_innerwrap strong"},
	{Selector: ".price"},
}

// Fields 提取结果
type Fields struct {
	Title string
	Price string
}

// Extractor 商品字段提取器
type Extractor struct {
	titles []Candidate
	prices []Candidate
}

// NewExtractor 创建提取器, 传入空列表时使用默认候选
func NewExtractor(titles, prices []Candidate) *Extractor {
	if len(titles) == 0 {
		titles = DefaultTitleCandidates
	}
	if len(prices) == 0 {
		prices = DefaultPriceCandidates
	}
	return &Extractor{titles: titles, prices: prices}
}

// Extract 从页面 HTML 中提取标题和价格, 从不失败
// 标题全部未命中时使用 page 的文档标题, 再退回 "Unknown"
func (e *Extractor) Extract(rawHTML string, page Page) Fields {
	doc, err := parseDocument(rawHTML)
	if err != nil {
		log.Debug().Err(err).Msg("解析HTML失败")
	}

	fields := Fields{
		Title: e.resolveTitle(doc, page),
		Price: models.SentinelNA,
	}

	if doc != nil {
		if price, ok := e.resolvePrice(doc); ok {
			fields.Price = price
		}
	}
	return fields
}

func parseDocument(rawHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

func (e *Extractor) resolveTitle(doc *goquery.Document, page Page) string {
	if doc != nil {
		for _, c := range e.titles {
			if text := firstNonEmpty(doc.Find(c.Selector), c); text != "" {
				return text
			}
		}
	}

	if page != nil {
		if title, err := page.Title(); err == nil {
			if title = strings.TrimSpace(title); title != "" {
				return title
			}
		}
	}
	if doc != nil {
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			return title
		}
	}
	return models.SentinelUnknown
}

// resolvePrice 第一个命中元素的候选获胜, 即使其文本中没有数字
func (e *Extractor) resolvePrice(doc *goquery.Document) (string, bool) {
	for _, c := range e.prices {
		sel := doc.Find(c.Selector)
		if sel.Length() == 0 {
			continue
		}
		return NormalizePrice(candidateText(sel.First(), c)), true
	}
	return "", false
}

// firstNonEmpty 同一选择器的多个匹配中取第一个非空文本
func firstNonEmpty(sel *goquery.Selection, c Candidate) string {
	var text string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text = candidateText(s, c)
		return text == ""
	})
	return text
}

func candidateText(sel *goquery.Selection, c Candidate) string {
	if c.Attr != "" {
		v, _ := sel.Attr(c.Attr)
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(sel.Text())
}

// NormalizePrice 取第一段数字并去掉千分位逗号
// 没有数字时原样返回
func NormalizePrice(text string) string {
	run := priceRunPattern.FindString(text)
	if run == "" {
		return text
	}
	return strings.ReplaceAll(run, ",", "")
}
