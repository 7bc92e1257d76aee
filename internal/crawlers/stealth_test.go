package crawlers

import (
	"strings"
	"testing"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
)

func TestBuildIdentityScript(t *testing.T) {
	script := buildIdentityScript(models.DefaultProfile())

	for _, want := range []string{
		`["ko-KR","ko","en-US","en"]`,
		`define(navigator, 'language', "ko-KR")`,
		`define(navigator, 'platform', "Win32")`,
		`'webdriver', undefined`,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("脚本缺少 %s", want)
		}
	}
	if strings.Contains(script, "__") {
		t.Error("脚本中仍有未替换的占位符")
	}
}

func TestBuildIdentityScript_EscapesValues(t *testing.T) {
	profile := models.DefaultProfile()
	profile.Platform = `Mac"Intel`

	script := buildIdentityScript(profile)
	if !strings.Contains(script, `"Mac\"Intel"`) {
		t.Error("平台值应被转义")
	}
}
