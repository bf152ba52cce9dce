package config

import (
	"sort"
	"strconv"
	"strings"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/constants"
	"github.com/paid-tw/paid/internal/logger"
)

// 沙箱模式来源
const (
	SandboxSourceRuntime = "runtime"
	SandboxSourceEnvMode = "env_mode"
	SandboxSourceFlag    = "flag"
	SandboxSourceEnv     = "env"
	SandboxSourceFile    = "file"
	SandboxSourceDefault = "default"
)

// RuntimeOverride 单次调用的显式模式覆盖
type RuntimeOverride struct {
	Sandbox *bool
}

// EffectiveConfig 单次调用合并后的配置，不缓存
type EffectiveConfig struct {
	Provider      string
	MerchantID    string
	HashKey       string
	HashIV        string
	Sandbox       bool
	SandboxSource string
}

// Environment 返回 sandbox / production
func (c EffectiveConfig) Environment() string {
	if c.Sandbox {
		return constants.EnvModeSandbox
	}
	return constants.EnvModeProduction
}

// Resolver 合并环境变量、配置文件与调用参数
type Resolver struct {
	env   Env
	store Store
}

// NewResolver 创建配置解析器
func NewResolver(env Env, store Store) *Resolver {
	if env == nil {
		env = OSEnv{}
	}
	return &Resolver{env: env, store: store}
}

// Document 读取配置文档，失败时记录日志并返回空文档
func (r *Resolver) Document() *Document {
	if r.store == nil {
		return &Document{}
	}
	doc, err := r.store.Load()
	if err != nil {
		logger.Warnw("config_store_load_failed", "error", err)
		return &Document{}
	}
	if doc == nil {
		return &Document{}
	}
	return doc
}

// ResolveProviderName 解析本次调用使用的支付服务
// 顺序：显式参数 > PAID_DEFAULT_PROVIDER > 配置文件 defaultProvider > 唯一已配置的服务。
func (r *Resolver) ResolveProviderName(explicit string) (string, error) {
	return r.ResolveProviderNameFrom(r.Document(), explicit)
}

// ResolveProviderNameFrom 使用已读取的配置文档解析支付服务
func (r *Resolver) ResolveProviderNameFrom(doc *Document, explicit string) (string, error) {
	if name := strings.TrimSpace(explicit); name != "" {
		return checkProviderName(name)
	}
	if name, ok := r.lookup(constants.EnvDefaultProvider); ok {
		return checkProviderName(name)
	}
	if doc == nil {
		doc = &Document{}
	}
	if name := strings.TrimSpace(doc.DefaultProvider); name != "" {
		return checkProviderName(name)
	}

	configured := make([]string, 0, len(doc.Providers))
	for name := range doc.Providers {
		if constants.IsKnownProvider(name) {
			configured = append(configured, name)
		}
	}
	if len(configured) == 1 {
		return configured[0], nil
	}
	sort.Strings(configured)
	return "", apperr.WrapError(apperr.CodeConfigResolution,
		"no provider specified and no default found",
		providerCandidatesError(configured),
	)
}

// ResolveProviderConfig 合并出单次调用的有效配置，始终成功
func (r *Resolver) ResolveProviderConfig(provider string, flags *ProviderConfig, override *RuntimeOverride) EffectiveConfig {
	return r.ResolveProviderConfigFrom(r.Document(), provider, flags, override)
}

// ResolveProviderConfigFrom 使用已读取的配置文档合并有效配置
func (r *Resolver) ResolveProviderConfigFrom(doc *Document, provider string, flags *ProviderConfig, override *RuntimeOverride) EffectiveConfig {
	stored, _ := doc.Provider(provider)
	if flags == nil {
		flags = &ProviderConfig{}
	}
	prefix := strings.ToUpper(provider)

	effective := EffectiveConfig{
		Provider:   provider,
		MerchantID: r.firstValue(flags.MerchantID, prefix+constants.EnvSuffixMerchantID, stored.MerchantID),
		HashKey:    r.firstValue(flags.HashKey, prefix+constants.EnvSuffixHashKey, stored.HashKey),
		HashIV:     r.firstValue(flags.HashIV, prefix+constants.EnvSuffixHashIV, stored.HashIV),
	}
	effective.Sandbox, effective.SandboxSource = r.resolveSandbox(prefix, flags.Sandbox, stored.Sandbox, override)
	return effective
}

func (r *Resolver) resolveSandbox(prefix string, flag, stored *bool, override *RuntimeOverride) (bool, string) {
	if override != nil && override.Sandbox != nil {
		return *override.Sandbox, SandboxSourceRuntime
	}
	if mode, ok := r.lookup(constants.EnvMode); ok {
		if sandbox, ok := ParseEnvMode(mode); ok {
			return sandbox, SandboxSourceEnvMode
		}
	}
	if flag != nil {
		return *flag, SandboxSourceFlag
	}
	if raw, ok := r.lookup(prefix + constants.EnvSuffixSandbox); ok {
		if sandbox, err := strconv.ParseBool(raw); err == nil {
			return sandbox, SandboxSourceEnv
		}
	}
	if stored != nil {
		return *stored, SandboxSourceFile
	}
	return false, SandboxSourceDefault
}

// ParseEnvMode 解析 PAID_ENV，无法识别时 ok 为 false
func ParseEnvMode(raw string) (sandbox bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case constants.EnvModeSandbox, constants.EnvModeTest:
		return true, true
	case constants.EnvModeProduction, constants.EnvModeProd:
		return false, true
	default:
		return false, false
	}
}

// Lookup 读取去除空白后的非空环境变量
func (r *Resolver) Lookup(key string) (string, bool) {
	return r.lookup(key)
}

func (r *Resolver) lookup(key string) (string, bool) {
	raw, ok := r.env.Lookup(key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	return value, true
}

func (r *Resolver) firstValue(flag, envKey, stored string) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if v, ok := r.lookup(envKey); ok {
		return v
	}
	return strings.TrimSpace(stored)
}

func checkProviderName(name string) (string, error) {
	name = strings.ToLower(name)
	if !constants.IsKnownProvider(name) {
		return "", apperr.Validation("unsupported provider: " + name)
	}
	return name, nil
}

type providerCandidatesError []string

func (e providerCandidatesError) Error() string {
	if len(e) == 0 {
		return "no configured providers"
	}
	return "multiple configured providers: " + strings.Join(e, ", ")
}
