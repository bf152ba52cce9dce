package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/constants"

	"github.com/pelletier/go-toml/v2"
)

// ProviderConfig 单个支付服务的凭证与模式
// Sandbox 为三态：nil 表示未设置。
type ProviderConfig struct {
	MerchantID string `toml:"merchantId,omitempty" json:"merchantId,omitempty"`
	HashKey    string `toml:"hashKey,omitempty" json:"hashKey,omitempty"`
	HashIV     string `toml:"hashIv,omitempty" json:"hashIv,omitempty"`
	Sandbox    *bool  `toml:"sandbox,omitempty" json:"sandbox,omitempty"`
}

// Document 配置文件内容
type Document struct {
	DefaultProvider string                    `toml:"defaultProvider,omitempty" json:"defaultProvider,omitempty"`
	OutputFormat    string                    `toml:"outputFormat,omitempty" json:"outputFormat,omitempty"`
	Providers       map[string]ProviderConfig `toml:"providers,omitempty" json:"providers,omitempty"`

	Log     *LogConfig     `toml:"log,omitempty" json:"log,omitempty"`
	HTTP    *HTTPConfig    `toml:"http,omitempty" json:"http,omitempty"`
	Gateway *GatewayConfig `toml:"gateway,omitempty" json:"gateway,omitempty"`
}

// Provider 返回指定支付服务的配置段
func (d *Document) Provider(name string) (ProviderConfig, bool) {
	if d == nil || d.Providers == nil {
		return ProviderConfig{}, false
	}
	cfg, ok := d.Providers[name]
	return cfg, ok
}

// Store 配置文档读写能力
type Store interface {
	Load() (*Document, error)
	Save(doc *Document) error
}

// FileStore 基于 TOML 文件的配置存储
// 每次 Save 都整文件重写；多进程并发写入时后写者覆盖先写者。
type FileStore struct {
	path string
}

// NewFileStore 创建文件存储
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path 返回配置文件路径
func (s *FileStore) Path() string {
	return s.path
}

// Load 读取配置文件，文件不存在时返回空文档
func (s *FileStore) Load() (*Document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	var doc Document
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s failed: %w", s.path, err)
	}
	return &doc, nil
}

// Save 原子写入整个配置文档（临时文件 + rename）
func (s *FileStore) Save(doc *Document) error {
	if doc == nil {
		doc = &Document{}
	}
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config failed: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir failed: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config failed: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp config failed: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp config failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config failed: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace config file failed: %w", err)
	}
	return nil
}

// SetProviderConfig 合并写入支付服务配置，空字段与未设置的 sandbox 保留原值
func SetProviderConfig(store Store, provider string, input ProviderConfig) (*Document, error) {
	if !constants.IsKnownProvider(provider) {
		return nil, apperr.Validation("unsupported provider: " + provider)
	}
	doc, err := store.Load()
	if err != nil {
		return nil, err
	}
	if doc.Providers == nil {
		doc.Providers = make(map[string]ProviderConfig)
	}
	doc.Providers[provider] = mergeProviderConfig(doc.Providers[provider], input)
	if err := store.Save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// SetDefaultProvider 写入默认支付服务
func SetDefaultProvider(store Store, provider string) (*Document, error) {
	if !constants.IsKnownProvider(provider) {
		return nil, apperr.Validation("unsupported provider: " + provider)
	}
	doc, err := store.Load()
	if err != nil {
		return nil, err
	}
	doc.DefaultProvider = provider
	if err := store.Save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// SetOutputFormat 写入默认输出格式（json/pretty）
func SetOutputFormat(store Store, format string) (*Document, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != constants.OutputFormatJSON && format != constants.OutputFormatPretty {
		return nil, apperr.Validation("output format must be json or pretty")
	}
	doc, err := store.Load()
	if err != nil {
		return nil, err
	}
	doc.OutputFormat = format
	if err := store.Save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func mergeProviderConfig(base, input ProviderConfig) ProviderConfig {
	if v := strings.TrimSpace(input.MerchantID); v != "" {
		base.MerchantID = v
	}
	if v := strings.TrimSpace(input.HashKey); v != "" {
		base.HashKey = v
	}
	if v := strings.TrimSpace(input.HashIV); v != "" {
		base.HashIV = v
	}
	if input.Sandbox != nil {
		sandbox := *input.Sandbox
		base.Sandbox = &sandbox
	}
	return base
}
