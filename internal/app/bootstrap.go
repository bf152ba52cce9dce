package app

import (
	"context"
	"fmt"
	"os/signal"
	"time"

	"github.com/paid-tw/paid/internal/cli"
	"github.com/paid-tw/paid/internal/config"
	"github.com/paid-tw/paid/internal/logger"
	"github.com/paid-tw/paid/internal/provider"
)

// Bootstrap 加载 .env 与运行参数并构建命令行环境
func Bootstrap(opts Options) (*cli.App, error) {
	opts = normalizeOptions(opts)

	var dotenvKeys []string
	if opts.WorkDir != "" {
		keys, err := config.LoadDotEnv(opts.WorkDir)
		if err != nil {
			logger.Warnw("dotenv_load_failed", "dir", opts.WorkDir, "error", err)
		}
		dotenvKeys = keys
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger.Init(settings.Log.Mode, settings.Log.ToLoggerOptions())

	container := provider.NewContainer(provider.Options{
		Settings:   settings,
		Env:        config.OSEnv{},
		Store:      config.NewFileStore(opts.ConfigPath),
		DotenvKeys: dotenvKeys,
	})
	return &cli.App{
		Container:  container,
		ConfigPath: opts.ConfigPath,
		Out:        opts.Out,
		Err:        opts.Err,
		Now:        time.Now,
	}, nil
}

// Run 命令行启动入口，返回进程退出码
func Run(opts Options) int {
	opts = normalizeOptions(opts)
	application, err := Bootstrap(opts)
	if err != nil {
		fmt.Fprintln(opts.Err, "Error:", err)
		return 1
	}
	defer logger.Sync()

	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}

	logger.Debugw("app_start", "config", opts.ConfigPath, "args", len(opts.Args))
	return cli.Execute(ctx, application, opts.Args)
}
