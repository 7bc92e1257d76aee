package core

import (
	"net/http"

	"github.com/RecoveryAshes/PriceWatch/internal/config"
	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/RecoveryAshes/PriceWatch/internal/utils"
	"github.com/spf13/afero"
)

// HeaderManager 管理商品页请求头部
// 优先级: 身份配置默认值 < headers.yaml < 命令行 -H
// 实现 models.HeaderProvider 接口
type HeaderManager struct {
	defaults http.Header
	config   http.Header
	cli      http.Header

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader

	loaded bool
}

// NewHeaderManager 创建头部管理器
//   - configFile: headers.yaml 路径, 为空时使用 configs/headers.yaml
//   - cliHeaders: 命令行传入的 "Name: Value" 列表
//   - profile: 浏览器身份, 决定 User-Agent 和 Accept-Language 默认值
func NewHeaderManager(configFile string, cliHeaders []string, profile models.Profile) (*HeaderManager, error) {
	return NewHeaderManagerFs(afero.NewOsFs(), configFile, cliHeaders, profile)
}

// NewHeaderManagerFs 使用指定文件系统创建头部管理器
func NewHeaderManagerFs(fs afero.Fs, configFile string, cliHeaders []string, profile models.Profile) (*HeaderManager, error) {
	hm := &HeaderManager{
		defaults:     defaultHeaders(profile),
		config:       make(http.Header),
		cli:          make(http.Header),
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoaderFs(fs, configFile),
	}

	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	}
	return hm, nil
}

// defaultHeaders 与真实 Chrome 导航请求一致的默认头部
func defaultHeaders(profile models.Profile) http.Header {
	return http.Header{
		"User-Agent":                {profile.UserAgent},
		"Accept":                    {"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"},
		"Accept-Language":           {profile.AcceptLanguage()},
		"Accept-Encoding":           {"gzip, deflate, br"},
		"Upgrade-Insecure-Requests": {"1"},
	}
}

// LoadConfig 加载 headers.yaml, 已加载时跳过
func (hm *HeaderManager) LoadConfig() error {
	if hm.loaded {
		return nil
	}

	headerConfig, err := hm.configLoader.LoadConfig()
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败: %v", err)
		return err
	}

	hm.config = make(http.Header, len(headerConfig.Headers))
	for name, value := range headerConfig.Headers {
		hm.config.Set(name, value)
	}
	hm.loaded = true

	if len(hm.config) > 0 {
		utils.Debugf("成功加载%d个HTTP头部配置: %s", len(hm.config), hm.redactor.RedactToString(hm.config))
	}
	return nil
}

// Validate 依次验证 默认 → 配置 → 命令行 头部
func (hm *HeaderManager) Validate() error {
	for _, layer := range []struct {
		name    string
		headers http.Header
	}{
		{"默认", hm.defaults},
		{"配置文件", hm.config},
		{"命令行", hm.cli},
	} {
		if err := hm.validator.Validate(layer.headers); err != nil {
			utils.Errorf("%s头部验证失败: %v", layer.name, err)
			return err
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并头部
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range layer {
			result[name] = append([]string(nil), values...)
		}
	}
	return result
}

// GetSafeHeaders 脱敏后的合并头部, 用于日志
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.LoadConfig(); err != nil {
		return nil, err
	}
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}
