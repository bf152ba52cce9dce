package app

import (
	"io"
	"os"

	"github.com/paid-tw/paid/internal/config"
)

// Options 命令行启动选项
type Options struct {
	ConfigPath string
	WorkDir    string
	Args       []string
	Signals    []os.Signal
	Out        io.Writer
	Err        io.Writer
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath()
	}
	if opts.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			opts.WorkDir = wd
		}
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	return opts
}
