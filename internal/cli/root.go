package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/config"
	"github.com/paid-tw/paid/internal/constants"
	"github.com/paid-tw/paid/internal/logger"
	"github.com/paid-tw/paid/internal/provider"

	"github.com/spf13/cobra"
)

// Version 构建时注入
var Version = "dev"

// App 命令行运行环境
type App struct {
	Container  *provider.Container
	ConfigPath string
	Out        io.Writer
	Err        io.Writer
	Now        func() time.Time
}

type globalOptions struct {
	output string
	debug  bool
}

// NewRootCommand 构建 paid 根命令
func NewRootCommand(app *App) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "paid",
		Short: "paid CLI: 台灣金流整合工具（PAYUNi 交易查詢）",
		Long: `paid 透過加密通道查詢金流交易，憑證依序取自 CLI flags、環境變數與 ~/.config/paid/config.toml。

Credential priority (merchantId / hashKey / hashIv):
  1) CLI flags (--merchant-id, --hash-key, --hash-iv)
  2) ENV (<PROVIDER>_MERCHANT_ID, <PROVIDER>_HASH_KEY, <PROVIDER>_HASH_IV)
  3) ~/.config/paid/config.toml

Sandbox priority:
  1) --env sandbox|production
  2) PAID_ENV (sandbox/test, production/prod)
  3) --sandbox
  4) <PROVIDER>_SANDBOX
  5) config.toml sandbox
  6) production

Provider priority:
  1) --provider
  2) PAID_DEFAULT_PROVIDER
  3) config.toml defaultProvider
  4) the only provider configured in config.toml`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "" && opts.output != constants.OutputFormatJSON && opts.output != constants.OutputFormatPretty {
				return apperr.Validation("--output must be json or pretty")
			}
			if opts.debug {
				logOpts := logger.Options{}
				if app.Container != nil && app.Container.Settings != nil {
					logOpts = app.Container.Settings.Log.ToLoggerOptions()
				}
				logger.Init(logger.ModeDebug, logOpts)
			}
			return nil
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "輸出格式 (json/pretty)，預設取設定檔 outputFormat")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "輸出 debug 日誌到 stderr")

	root.AddCommand(newPaymentsCommand(app, opts))
	root.AddCommand(newConfigCommand(app, opts))
	root.AddCommand(newProvidersCommand(app, opts))
	root.AddCommand(newDoctorCommand(app, opts))
	return root
}

// Execute 执行命令并返回退出码
func Execute(ctx context.Context, app *App, args []string) int {
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.Err == nil {
		app.Err = os.Stderr
	}
	if app.Now == nil {
		app.Now = time.Now
	}

	root := NewRootCommand(app)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	// 未输出的错误只来自参数解析与全局 flag 校验，均按用法错误处理
	fmt.Fprintln(app.Err, "Error:", err)
	return 2
}

// newPrinter 按 --output > 配置文件 outputFormat > fallback 决定输出格式
func (a *App) newPrinter(opts *globalOptions, fallback string) *printer {
	format := strings.ToLower(strings.TrimSpace(opts.output))
	if format == "" && a.Container != nil {
		format = a.Container.Resolver.Document().OutputFormat
	}
	if format != constants.OutputFormatJSON && format != constants.OutputFormatPretty {
		format = fallback
	}
	return &printer{out: a.Out, errOut: a.Err, format: format, now: a.Now}
}

func (a *App) store() config.Store {
	return a.Container.Store
}
