package cli

import (
	"fmt"
	"strings"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/config"
	"github.com/paid-tw/paid/internal/constants"

	"github.com/spf13/cobra"
)

func newConfigCommand(app *App, opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "設定檔操作",
		Example: `  paid config get
  paid config get --provider=payuni
  paid config set --default-provider=payuni
  paid config set --output-format=pretty
  paid config set --provider=payuni --merchant-id=MS12345678 --hash-key=... --hash-iv=...
  paid config set --provider=payuni --sandbox
  paid config path`,
	}
	cmd.AddCommand(newConfigGetCommand(app, opts))
	cmd.AddCommand(newConfigSetCommand(app, opts))
	cmd.AddCommand(newConfigPathCommand(app, opts))
	return cmd
}

func newConfigGetCommand(app *App, opts *globalOptions) *cobra.Command {
	var (
		providerName string
		showSecrets  bool
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "取得設定",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			const command = "config get"
			p := app.newPrinter(opts, constants.OutputFormatJSON)

			doc, err := app.store().Load()
			if err != nil {
				return p.failure(command, "", apperr.WrapError(apperr.CodeInternal, "load config failed", err))
			}
			if !showSecrets {
				doc = maskDocument(doc)
			}
			if providerName != "" {
				if !constants.IsKnownProvider(providerName) {
					return p.failure(command, "", apperr.Validation("unsupported provider: "+providerName))
				}
				section, _ := doc.Provider(providerName)
				return p.success(command, "", section, nil)
			}
			return p.success(command, "", doc, nil)
		},
	}
	cmd.Flags().StringVar(&providerName, "provider", "", "支付服務 (payuni/newebpay/ecpay)")
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "顯示完整 HashKey/HashIV")
	return cmd
}

type configSetUpdates struct {
	Message         string                 `json:"message"`
	DefaultProvider string                 `json:"defaultProvider,omitempty"`
	OutputFormat    string                 `json:"outputFormat,omitempty"`
	Provider        string                 `json:"provider,omitempty"`
	Config          *config.ProviderConfig `json:"config,omitempty"`
}

func newConfigSetCommand(app *App, opts *globalOptions) *cobra.Command {
	var (
		providerName    string
		defaultProvider string
		outputFormat    string
		merchantID      string
		hashKey         string
		hashIV          string
		sandbox         bool
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "寫入設定",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			const command = "config set"
			p := app.newPrinter(opts, constants.OutputFormatJSON)
			store := app.store()

			if providerName == "" && defaultProvider == "" && outputFormat == "" {
				return p.failure(command, "", apperr.Validation("one of --provider, --default-provider or --output-format is required"))
			}

			updates := configSetUpdates{Message: "設定已更新"}
			if defaultProvider != "" {
				if _, err := config.SetDefaultProvider(store, strings.ToLower(defaultProvider)); err != nil {
					return p.failure(command, "", err)
				}
				updates.DefaultProvider = strings.ToLower(defaultProvider)
			}
			if outputFormat != "" {
				doc, err := config.SetOutputFormat(store, outputFormat)
				if err != nil {
					return p.failure(command, "", err)
				}
				updates.OutputFormat = doc.OutputFormat
			}
			if providerName != "" {
				input := config.ProviderConfig{MerchantID: merchantID, HashKey: hashKey, HashIV: hashIV}
				if cmd.Flags().Changed("sandbox") {
					value := sandbox
					input.Sandbox = &value
				}
				name := strings.ToLower(providerName)
				doc, err := config.SetProviderConfig(store, name, input)
				if err != nil {
					return p.failure(command, "", err)
				}
				section, _ := doc.Provider(name)
				masked := maskProviderConfig(section)
				updates.Provider = name
				updates.Config = &masked
			}
			return p.success(command, "", updates, nil)
		},
	}
	cmd.Flags().StringVar(&providerName, "provider", "", "支付服務 (payuni/newebpay/ecpay)")
	cmd.Flags().StringVar(&defaultProvider, "default-provider", "", "預設支付服務")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "輸出格式 (json/pretty)")
	cmd.Flags().StringVar(&merchantID, "merchant-id", "", "商店代號")
	cmd.Flags().StringVar(&hashKey, "hash-key", "", "HashKey")
	cmd.Flags().StringVar(&hashIV, "hash-iv", "", "HashIV")
	cmd.Flags().BoolVar(&sandbox, "sandbox", false, "使用測試環境（--sandbox=false 切回正式環境）")
	return cmd
}

func newConfigPathCommand(app *App, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "顯示設定檔位置",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := app.newPrinter(opts, constants.OutputFormatJSON)
			return p.success("config path", "", map[string]string{"path": app.ConfigPath}, func() string {
				return app.ConfigPath
			})
		},
	}
}

func maskDocument(doc *config.Document) *config.Document {
	masked := *doc
	if doc.Providers != nil {
		masked.Providers = make(map[string]config.ProviderConfig, len(doc.Providers))
		for name, section := range doc.Providers {
			masked.Providers[name] = maskProviderConfig(section)
		}
	}
	return &masked
}

func maskProviderConfig(section config.ProviderConfig) config.ProviderConfig {
	section.HashKey = maskSecret(section.HashKey)
	section.HashIV = maskSecret(section.HashIV)
	return section
}

// maskSecret 只保留末 4 位
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return fmt.Sprintf("%s%s", strings.Repeat("*", len(secret)-4), secret[len(secret)-4:])
}
