package cli

import (
	"strings"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/config"
	"github.com/paid-tw/paid/internal/constants"
	"github.com/paid-tw/paid/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// credentialFlags 单次调用的凭证覆盖
type credentialFlags struct {
	provider   string
	env        string
	merchantID string
	hashKey    string
	hashIV     string
	sandbox    bool
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "支付服務 (payuni/newebpay/ecpay)")
	cmd.Flags().StringVar(&f.env, "env", "", "本次呼叫的環境 (sandbox/production)，優先於所有設定")
	cmd.Flags().StringVar(&f.merchantID, "merchant-id", "", "商店代號")
	cmd.Flags().StringVar(&f.hashKey, "hash-key", "", "HashKey")
	cmd.Flags().StringVar(&f.hashIV, "hash-iv", "", "HashIV")
	cmd.Flags().BoolVar(&f.sandbox, "sandbox", false, "使用測試環境")
}

// providerConfig 只有显式传入的 --sandbox 才参与合并
func (f *credentialFlags) providerConfig(cmd *cobra.Command) *config.ProviderConfig {
	cfg := &config.ProviderConfig{
		MerchantID: f.merchantID,
		HashKey:    f.hashKey,
		HashIV:     f.hashIV,
	}
	if cmd.Flags().Changed("sandbox") {
		sandbox := f.sandbox
		cfg.Sandbox = &sandbox
	}
	return cfg
}

func (f *credentialFlags) runtimeOverride() (*config.RuntimeOverride, error) {
	if strings.TrimSpace(f.env) == "" {
		return nil, nil
	}
	sandbox, ok := config.ParseEnvMode(f.env)
	if !ok {
		return nil, apperr.Validation("--env must be sandbox or production")
	}
	return &config.RuntimeOverride{Sandbox: &sandbox}, nil
}

func newPaymentsCommand(app *App, opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "交易建立、查詢、退款",
		Example: `  paid payments get --provider=payuni --id=ORDER123
  paid payments get --trade-no=UNI0001 --env=sandbox --output=pretty
  paid payments create --provider=payuni --amount=100 --method=card --order-id=ORDER123
  paid payments refund --provider=payuni --id=ORDER123 --amount=100`,
	}
	cmd.AddCommand(newPaymentsCreateCommand(app, opts))
	cmd.AddCommand(newPaymentsGetCommand(app, opts))
	cmd.AddCommand(newPaymentsRefundCommand(app, opts))
	return cmd
}

func newPaymentsCreateCommand(app *App, opts *globalOptions) *cobra.Command {
	creds := &credentialFlags{}
	var (
		amount    string
		currency  string
		method    string
		orderID   string
		itemDesc  string
		returnURL string
		notifyURL string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "建立交易",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			const command = "payments create"
			p := app.newPrinter(opts, constants.OutputFormatJSON)
			svc := app.Container.PaymentService
			flags := creds.providerConfig(cmd)

			override, err := creds.runtimeOverride()
			if err != nil {
				return p.failure(command, "", err)
			}
			parsedAmount, err := decimal.NewFromString(strings.TrimSpace(amount))
			if err != nil {
				return p.failure(command, "", apperr.Validation("--amount must be a number"))
			}

			result, err := svc.CreatePayment(cmd.Context(), service.CreatePaymentInput{
				Provider:    creds.provider,
				Amount:      parsedAmount,
				Currency:    currency,
				Method:      method,
				OrderID:     orderID,
				Description: itemDesc,
				ReturnURL:   returnURL,
				NotifyURL:   notifyURL,
				Flags:       flags,
			}, override)
			if err != nil {
				return p.failure(command, svc.ResolveEnvironment(creds.provider, flags, override), err)
			}
			return p.success(command, result.Environment, result, nil)
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVar(&amount, "amount", "", "金額")
	cmd.Flags().StringVar(&currency, "currency", "TWD", "幣別")
	cmd.Flags().StringVar(&method, "method", "", "付款方式 (card/linepay/atm/cvs)")
	cmd.Flags().StringVar(&orderID, "order-id", "", "訂單編號")
	cmd.Flags().StringVar(&itemDesc, "item-desc", "", "商品描述")
	cmd.Flags().StringVar(&returnURL, "return-url", "", "Return URL")
	cmd.Flags().StringVar(&notifyURL, "notify-url", "", "Notify URL")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("method")
	_ = cmd.MarkFlagRequired("order-id")
	return cmd
}

func newPaymentsGetCommand(app *App, opts *globalOptions) *cobra.Command {
	creds := &credentialFlags{}
	var (
		id      string
		tradeNo string
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "查詢交易",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			const command = "payments get"
			p := app.newPrinter(opts, constants.OutputFormatJSON)
			svc := app.Container.PaymentService
			flags := creds.providerConfig(cmd)

			override, err := creds.runtimeOverride()
			if err != nil {
				return p.failure(command, "", err)
			}
			result, err := svc.GetPayment(cmd.Context(), service.GetPaymentInput{
				Provider: creds.provider,
				ID:       id,
				TradeNo:  tradeNo,
				Flags:    flags,
			}, override)
			if err != nil {
				return p.failure(command, svc.ResolveEnvironment(creds.provider, flags, override), err)
			}
			if err := p.success(command, result.Environment, result, func() string {
				return renderPaymentPretty(result)
			}); err != nil {
				return err
			}
			if result.Result != nil && !result.Result.OK {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "商店訂單編號 (MerTradeNo)")
	cmd.Flags().StringVar(&tradeNo, "trade-no", "", "金流交易序號 (TradeNo)")
	return cmd
}

func newPaymentsRefundCommand(app *App, opts *globalOptions) *cobra.Command {
	creds := &credentialFlags{}
	var (
		id     string
		amount string
		reason string
	)
	cmd := &cobra.Command{
		Use:   "refund",
		Short: "退款",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			const command = "payments refund"
			p := app.newPrinter(opts, constants.OutputFormatJSON)
			svc := app.Container.PaymentService
			flags := creds.providerConfig(cmd)

			override, err := creds.runtimeOverride()
			if err != nil {
				return p.failure(command, "", err)
			}
			var refundAmount *decimal.Decimal
			if strings.TrimSpace(amount) != "" {
				parsed, err := decimal.NewFromString(strings.TrimSpace(amount))
				if err != nil {
					return p.failure(command, "", apperr.Validation("--amount must be a number"))
				}
				refundAmount = &parsed
			}

			result, err := svc.RefundPayment(cmd.Context(), service.RefundPaymentInput{
				Provider: creds.provider,
				ID:       id,
				Amount:   refundAmount,
				Reason:   reason,
				Flags:    flags,
			}, override)
			if err != nil {
				return p.failure(command, svc.ResolveEnvironment(creds.provider, flags, override), err)
			}
			return p.success(command, result.Environment, result, nil)
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "交易 ID")
	cmd.Flags().StringVar(&amount, "amount", "", "退款金額，預設全額")
	cmd.Flags().StringVar(&reason, "reason", "", "退款原因")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
