package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/PriceWatch/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Fetch   models.FetchConfig `mapstructure:"fetch"`
	Profile models.Profile     `mapstructure:"profile"`
	Extract ExtractConfig      `mapstructure:"extract"`
	Items   []string           `mapstructure:"items"`
	Logging LoggingConfig      `mapstructure:"logging"`
	Output  OutputConfig       `mapstructure:"output"`
	Notify  NotifyConfig       `mapstructure:"notify"`
	Metrics MetricsConfig      `mapstructure:"metrics"`
	Headers HeadersConfig      `mapstructure:"headers"`
}

// ExtractConfig 字段选择器, 按顺序尝试; "选择器@属性" 表示读取属性
type ExtractConfig struct {
	TitleSelectors []string `mapstructure:"title_selectors"`
	PriceSelectors []string `mapstructure:"price_selectors"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	LogDir   string         `mapstructure:"log_dir" validate:"required"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size" validate:"gte=1"`
	MaxBackups int  `mapstructure:"max_backups" validate:"gte=0"`
	MaxAge     int  `mapstructure:"max_age" validate:"gte=0"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir  string `mapstructure:"base_dir" validate:"required"`
	Report   bool   `mapstructure:"report"`   // 写出 JSON 运行报告
	Progress bool   `mapstructure:"progress"` // 显示进度条
}

// NotifyConfig 通知配置
type NotifyConfig struct {
	Telegram         TelegramConfig `mapstructure:"telegram"`
	SkipMissingPrice bool           `mapstructure:"skip_missing_price"`
}

// TelegramConfig Telegram Bot 配置, token 和 chat_id 也可通过
// TELEGRAM_TOKEN / TELEGRAM_CHAT_ID 环境变量提供
type TelegramConfig struct {
	Token   string        `mapstructure:"token" validate:"required_with=ChatID"`
	ChatID  string        `mapstructure:"chat_id" validate:"required_with=Token"`
	APIBase string        `mapstructure:"api_base" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// Enabled token 和 chat_id 都存在时启用
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != ""
}

// MetricsConfig 指标输出
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // node_exporter textfile 路径, 为空时不输出
}

// HeadersConfig 附加头部配置文件
type HeadersConfig struct {
	File string `mapstructure:"file"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigFs(afero.NewOsFs(), configPath)
}

// LoadConfigFs 从指定文件系统加载配置
func LoadConfigFs(fs afero.Fs, configPath string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)

	if configPath != "" {
		if ok, _ := afero.Exists(fs, configPath); !ok {
			return nil, &models.ConfigError{FilePath: configPath, Cause: fmt.Errorf("配置文件不存在")}
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pricewatch"))
		}
	}

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &models.ConfigError{FilePath: configPath, Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: fmt.Errorf("解析配置文件失败: %w", err)}
	}
	return &config, nil
}

// bindEnv PRICEWATCH_ 前缀覆盖任意键, 例如 PRICEWATCH_FETCH_MAX_ATTEMPTS
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("notify.telegram.token", "PRICEWATCH_NOTIFY_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")
	_ = v.BindEnv("notify.telegram.chat_id", "PRICEWATCH_NOTIFY_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	fetch := models.DefaultFetchConfig()
	v.SetDefault("fetch.host", fetch.Host)
	v.SetDefault("fetch.mode", string(fetch.Mode))
	v.SetDefault("fetch.max_attempts", fetch.MaxAttempts)
	v.SetDefault("fetch.backoff_base", fetch.BackoffBase)
	v.SetDefault("fetch.backoff_increment", fetch.BackoffIncrement)
	v.SetDefault("fetch.nav_timeout", fetch.NavTimeout)
	v.SetDefault("fetch.pacing_min", fetch.PacingMin)
	v.SetDefault("fetch.pacing_max", fetch.PacingMax)
	v.SetDefault("fetch.micro_delay_min", fetch.MicroDelayMin)
	v.SetDefault("fetch.micro_delay_max", fetch.MicroDelayMax)
	v.SetDefault("fetch.block_phrases", fetch.BlockPhrases)
	v.SetDefault("fetch.headless", fetch.Headless)
	v.SetDefault("fetch.browser_bin", "")
	v.SetDefault("fetch.snapshot_dir", fetch.SnapshotDir)

	profile := models.DefaultProfile()
	v.SetDefault("profile.viewport.width", profile.Viewport.Width)
	v.SetDefault("profile.viewport.height", profile.Viewport.Height)
	v.SetDefault("profile.locale", profile.Locale)
	v.SetDefault("profile.user_agent", profile.UserAgent)
	v.SetDefault("profile.timezone", profile.Timezone)
	v.SetDefault("profile.platform", profile.Platform)

	v.SetDefault("extract.title_selectors", []string{})
	v.SetDefault("extract.price_selectors", []string{})
	v.SetDefault("items", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("output.base_dir", "output")
	v.SetDefault("output.report", true)
	v.SetDefault("output.progress", true)

	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.telegram.chat_id", "")
	v.SetDefault("notify.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("notify.telegram.timeout", 10*time.Second)
	v.SetDefault("notify.skip_missing_price", false)

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("headers.file", "")
}

var validate = validator.New()

// Validate 验证配置
// fetch/profile 使用各自的 Validate, 其余部分按结构体标签验证
func (c *Config) Validate() error {
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := c.Profile.Validate(); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	if _, err := models.NormalizeItemIDs(c.Items); err != nil {
		return fmt.Errorf("items: %w", err)
	}
	sections := []struct {
		name  string
		value interface{}
	}{
		{"logging", &c.Logging},
		{"output", &c.Output},
		{"notify", &c.Notify},
	}
	for _, section := range sections {
		if err := validate.Struct(section.value); err != nil {
			return fmt.Errorf("%s: %w", section.name, describeValidation(err))
		}
	}
	return nil
}

// CLIOverrides 命令行参数, 零值表示未指定
type CLIOverrides struct {
	Mode      string
	Headless  *bool
	Attempts  int
	OutputDir string
	LogLevel  string
	Items     []string
}

// MergeCLIFlags 合并命令行参数到配置, 命令行优先于配置文件
func (c *Config) MergeCLIFlags(o CLIOverrides) {
	if o.Mode != "" {
		c.Fetch.Mode = models.FetchMode(strings.ToLower(o.Mode))
	}
	if o.Headless != nil {
		c.Fetch.Headless = *o.Headless
	}
	if o.Attempts > 0 {
		c.Fetch.MaxAttempts = o.Attempts
	}
	if o.OutputDir != "" {
		// 快照目录跟随输出目录, 除非配置文件单独指定
		if c.Fetch.SnapshotDir == filepath.Join(c.Output.BaseDir, "snapshots") {
			c.Fetch.SnapshotDir = filepath.Join(o.OutputDir, "snapshots")
		}
		c.Output.BaseDir = o.OutputDir
	}
	if o.LogLevel != "" {
		c.Logging.Level = strings.ToLower(o.LogLevel)
	}
	if len(o.Items) > 0 {
		c.Items = o.Items
	}
}

// describeValidation 把 validator 的错误转为 "字段: 规则" 形式
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Errorf("字段 %s 不满足 %s=%s (当前值: %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("字段 %s 不满足 %s (当前值: %v)", fe.Namespace(), fe.Tag(), fe.Value())
}
