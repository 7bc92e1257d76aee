package core

import (
	"errors"
	"testing"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/spf13/afero"
)

func newTestHeaderManager(t *testing.T, fileContent string, cli []string) *HeaderManager {
	t.Helper()
	fs := afero.NewMemMapFs()
	if fileContent != "" {
		if err := afero.WriteFile(fs, "headers.yaml", []byte(fileContent), 0644); err != nil {
			t.Fatal(err)
		}
	}
	hm, err := NewHeaderManagerFs(fs, "headers.yaml", cli, models.DefaultProfile())
	if err != nil {
		t.Fatalf("NewHeaderManagerFs() error = %v", err)
	}
	return hm
}

func TestHeaderManager_Defaults(t *testing.T) {
	hm := newTestHeaderManager(t, "", nil)
	profile := models.DefaultProfile()

	headers, err := hm.GetHeaders()
	if err != nil {
		t.Fatalf("GetHeaders() error = %v", err)
	}
	if headers.Get("User-Agent") != profile.UserAgent {
		t.Errorf("User-Agent = %q", headers.Get("User-Agent"))
	}
	if headers.Get("Accept-Language") != profile.AcceptLanguage() {
		t.Errorf("Accept-Language = %q", headers.Get("Accept-Language"))
	}
	// 不存在时生成的模板只包含 Referer
	if headers.Get("Referer") != "https://www.gmarket.co.kr/" {
		t.Errorf("Referer = %q", headers.Get("Referer"))
	}
}

func TestHeaderManager_Priority(t *testing.T) {
	file := "headers:\n  Referer: \"https://browse.gmarket.co.kr/\"\n  X-Requested-With: \"config\"\n"
	hm := newTestHeaderManager(t, file, []string{"X-Requested-With: cli"})

	headers, err := hm.GetHeaders()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, header, want string
	}{
		{"配置文件覆盖默认", "Referer", "https://browse.gmarket.co.kr/"},
		{"命令行覆盖配置文件", "X-Requested-With", "cli"},
		{"默认值保留", "Upgrade-Insecure-Requests", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := headers.Get(tt.header); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestHeaderManager_Errors(t *testing.T) {
	t.Run("命令行格式错误", func(t *testing.T) {
		_, err := NewHeaderManagerFs(afero.NewMemMapFs(), "", []string{"InvalidFormat"}, models.DefaultProfile())
		if err == nil {
			t.Error("期望返回错误")
		}
	})

	t.Run("禁止自定义Cookie", func(t *testing.T) {
		hm := newTestHeaderManager(t, "", []string{"Cookie: a=b"})
		_, err := hm.GetHeaders()

		var vErr *models.ValidationError
		if !errors.As(err, &vErr) || vErr.HeaderName != "Cookie" {
			t.Errorf("期望Cookie的ValidationError, got %v", err)
		}
	})

	t.Run("配置文件格式错误", func(t *testing.T) {
		hm := newTestHeaderManager(t, "headers: [", nil)
		_, err := hm.GetHeaders()

		var cfgErr *models.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("期望ConfigError, got %v", err)
		}
	})
}

func TestHeaderManager_GetSafeHeaders(t *testing.T) {
	hm := newTestHeaderManager(t, "", []string{"Authorization: Bearer secret-token-12345", "X-Api-Key: key1234567890"})

	safe := hm.GetSafeHeaders()
	if safe["Authorization"] != "Bearer ***" {
		t.Errorf("Authorization = %q", safe["Authorization"])
	}
	if safe["X-Api-Key"] != "key1***7890" {
		t.Errorf("X-Api-Key = %q", safe["X-Api-Key"])
	}
	if safe["Accept-Encoding"] != "gzip, deflate, br" {
		t.Errorf("普通头部不应脱敏: %q", safe["Accept-Encoding"])
	}
}
