package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paid-tw/paid/internal/logger"

	"github.com/spf13/viper"
)

const (
	configDirName  = "paid"
	configFileName = "config.toml"
	envPrefix      = "PAID"
)

// Settings 运行参数（日志、HTTP、网关地址），与凭证解析无关
type Settings struct {
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Gateway GatewayConfig `mapstructure:"gateway"`
}

// LogConfig 日志配置
type LogConfig struct {
	Mode       string `mapstructure:"mode" toml:"mode,omitempty"` // debug / release
	Dir        string `mapstructure:"dir" toml:"dir,omitempty"`
	Filename   string `mapstructure:"filename" toml:"filename,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb,omitempty"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups,omitempty"`
	MaxAgeDays int    `mapstructure:"max_age_days" toml:"max_age_days,omitempty"`
	Compress   bool   `mapstructure:"compress" toml:"compress,omitempty"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// HTTPConfig 网关请求配置
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds,omitempty"`
}

// Timeout 请求超时，非正数时回落到 15 秒
func (c HTTPConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GatewayConfig 网关地址覆盖（测试环境或代理使用）
type GatewayConfig struct {
	PayuniSandboxURL    string `mapstructure:"payuni_sandbox_url" toml:"payuni_sandbox_url,omitempty"`
	PayuniProductionURL string `mapstructure:"payuni_production_url" toml:"payuni_production_url,omitempty"`
}

// DefaultDir 返回 ~/.config/paid
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", configDirName)
	}
	return filepath.Join(home, ".config", configDirName)
}

// DefaultPath 返回默认配置文件路径
func DefaultPath() string {
	return filepath.Join(DefaultDir(), configFileName)
}

// Load 从默认值、配置文件与 PAID_* 环境变量加载运行参数
func Load(configPath string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	v.SetDefault("log.mode", logger.ModeRelease)
	v.SetDefault("log.dir", filepath.Join(filepath.Dir(configPath), "logs"))
	v.SetDefault("log.filename", "paid.log")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", false)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("gateway.payuni_sandbox_url", "")
	v.SetDefault("gateway.payuni_production_url", "")

	// 环境变量支持，例如 log.mode -> PAID_LOG_MODE
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("gateway.payuni_sandbox_url", "PAID_PAYUNI_SANDBOX_URL")
	_ = v.BindEnv("gateway.payuni_production_url", "PAID_PAYUNI_PRODUCTION_URL")

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warnw("config_file_read_failed",
				"file", configPath,
				"error", err,
				"fallback", "env_or_defaults",
			)
		}
	} else {
		logger.Debugw("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings failed: %w", err)
	}
	return &settings, nil
}
