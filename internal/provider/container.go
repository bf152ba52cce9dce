package provider

import (
	"net/http"

	"github.com/paid-tw/paid/internal/config"
	"github.com/paid-tw/paid/internal/constants"
	"github.com/paid-tw/paid/internal/logger"
	"github.com/paid-tw/paid/internal/payment"
	"github.com/paid-tw/paid/internal/payment/payuni"
	"github.com/paid-tw/paid/internal/service"

	"github.com/go-playground/validator/v10"
)

// Options 容器构建参数，零值字段使用默认实现
type Options struct {
	Settings   *config.Settings
	Env        config.Env
	Store      config.Store
	HTTPClient *http.Client
	DotenvKeys []string
}

// Container 依赖注入容器
type Container struct {
	Settings *config.Settings
	Env      config.Env
	Store    config.Store
	Resolver *config.Resolver
	Registry *payment.Registry

	// Services
	PaymentService *service.PaymentService
	DoctorService  *service.DoctorService
}

// NewContainer 初始化容器
func NewContainer(opts Options) *Container {
	settings := opts.Settings
	if settings == nil {
		settings = &config.Settings{}
	}
	env := opts.Env
	if env == nil {
		env = config.OSEnv{}
	}
	base := opts.Store
	if base == nil {
		base = config.NewFileStore(config.DefaultPath())
	}
	// 一次命令只读取一次配置文件
	store := config.NewCachedStore(base)

	resolver := config.NewResolver(env, store)
	registry := payment.NewRegistry(
		payuni.New(payuni.Options{
			SandboxURL:    settings.Gateway.PayuniSandboxURL,
			ProductionURL: settings.Gateway.PayuniProductionURL,
			HTTPClient:    opts.HTTPClient,
			Timeout:       settings.HTTP.Timeout(),
		}),
		payment.Unimplemented(constants.ProviderNewebpay),
		payment.Unimplemented(constants.ProviderEcpay),
	)
	logger.Debugw("provider_registry_ready", "providers", registry.Names())

	return &Container{
		Settings:       settings,
		Env:            env,
		Store:          store,
		Resolver:       resolver,
		Registry:       registry,
		PaymentService: service.NewPaymentService(resolver, registry, validator.New()),
		DoctorService:  service.NewDoctorService(resolver, opts.DotenvKeys),
	}
}
