package crawlers

import (
	"errors"
	"testing"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
)

func TestExtractor_TitlePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		pageTitle string
		titleErr  error
		want      string
	}{
		{
			name: "h1.itemtit优先",
			html: `<h1 class="itemtit">제목A</h1><div class="text__item-title">제목B</div>
				<meta property="og:title" content="제목C">`,
			want: "제목A",
		},
		{
			name: "内容标题类次之",
			html: `<div class="text__item-title"> 제목B </div><div class="box__item-title"><h1>제목D</h1></div>`,
			want: "제목B",
		},
		{
			name: "容器子元素",
			html: `<div class="box__item-title"><h1>제목D</h1></div><meta property="og:title" content="제목C">`,
			want: "제목D",
		},
		{
			name: "meta属性",
			html: `<head><meta property="og:title" content="  제목C  "></head>`,
			want: "제목C",
		},
		{
			name:      "空文本的候选被跳过",
			html:      `<h1 class="itemtit">   </h1><meta property="og:title" content="제목C">`,
			pageTitle: "문서 제목",
			want:      "제목C",
		},
		{
			name: "同一选择器跳过空的匹配",
			html: `<h1 class="itemtit"> </h1><h1 class="itemtit">제목E</h1><div class="text__item-title">제목B</div>`,
			want: "제목E",
		},
		{
			name: "属性为空的匹配被跳过",
			html: `<meta property="og:title" content=""><meta property="og:title" content="제목F">`,
			want: "제목F",
		},
		{
			name:      "全部未命中使用文档标题",
			html:      `<p>nothing</p>`,
			pageTitle: "G마켓 - 문서 제목",
			want:      "G마켓 - 문서 제목",
		},
		{
			name:     "文档标题不可用时读取title标签",
			html:     `<html><head><title>정적 제목</title></head></html>`,
			titleErr: errors.New("page closed"),
			want:     "정적 제목",
		},
		{
			name:     "全部不可用",
			html:     `<p>nothing</p>`,
			titleErr: errors.New("page closed"),
			want:     models.SentinelUnknown,
		},
	}

	e := NewExtractor(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &fakePage{session: newFakeSession(), step: fakeStep{title: tt.pageTitle, titleErr: tt.titleErr}}
			got := e.Extract(tt.html, page)
			if got.Title != tt.want {
				t.Errorf("Title = %q, want %q", got.Title, tt.want)
			}
		})
	}
}

func TestExtractor_Price(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"千分位", `<span class="price_real">12,345원</span>`, "12345"},
		{"优先级最高的候选", `<span class="price">9,900원</span><span class="price_real">8,800원</span>`, "8800"},
		{"多个匹配取第一个", `<span class="price_real">1,000원</span><span class="price_real">2,000원</span>`, "1000"},
		{"嵌套候选", `<div class="box__price"><span class="text__value">1,234,500</span>원</div>`, "1234500"},
		{"取第一段数字", `<strong class="price">₩ 39,000 (10% 할인)</strong>`, "39000"},
		{"没有数字时原样返回", `<span class="price_real"> 품절 </span><span class="price">5,000</span>`, "품절"},
		{"没有任何候选", `<div class="cost">5,000</div>`, models.SentinelNA},
	}

	e := NewExtractor(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.html, nil)
			if got.Price != tt.want {
				t.Errorf("Price = %q, want %q", got.Price, tt.want)
			}
		})
	}
}

func TestExtractor_CustomCandidates(t *testing.T) {
	e := NewExtractor(
		[]Candidate{ParseCandidate(`meta[name="title"]@content`)},
		[]Candidate{ParseCandidate("#sale-price")},
	)
	html := `<meta name="title" content="커스텀"><b id="sale-price">7,700</b><span class="price_real">1</span>`

	got := e.Extract(html, nil)
	if got.Title != "커스텀" || got.Price != "7700" {
		t.Errorf("Extract() = %+v", got)
	}
}

func TestParseCandidate(t *testing.T) {
	tests := []struct {
		in   string
		want Candidate
	}{
		{".price_real", Candidate{Selector: ".price_real"}},
		{`meta[property="og:title"]@content`, Candidate{Selector: `meta[property="og:title"]`, Attr: "content"}},
		{` img.thumb@src `, Candidate{Selector: "img.thumb", Attr: "src"}},
		{`a[href="mailto:x@y.com"]`, Candidate{Selector: `a[href="mailto:x@y.com"]`}},
	}
	for _, tt := range tests {
		if got := ParseCandidate(tt.in); got != tt.want {
			t.Errorf("ParseCandidate(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"12,345원", "12345"},
		{"12345", "12345"},
		{"가격: 1,000,000원", "1000000"},
		{"12,", "12"},
		{"문의", "문의"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePrice(tt.in); got != tt.want {
			t.Errorf("NormalizePrice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
