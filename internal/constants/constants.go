package constants

// 支付服务常量
const (
	ProviderPayuni   = "payuni"
	ProviderNewebpay = "newebpay"
	ProviderEcpay    = "ecpay"
)

// KnownProviders 已知支付服务（顺序固定）
var KnownProviders = []string{ProviderPayuni, ProviderNewebpay, ProviderEcpay}

// IsKnownProvider 判断是否为已知支付服务
func IsKnownProvider(name string) bool {
	for _, known := range KnownProviders {
		if known == name {
			return true
		}
	}
	return false
}

// 环境变量常量
const (
	EnvDefaultProvider = "PAID_DEFAULT_PROVIDER"
	EnvMode            = "PAID_ENV"

	EnvSuffixMerchantID = "_MERCHANT_ID"
	EnvSuffixHashKey    = "_HASH_KEY"
	EnvSuffixHashIV     = "_HASH_IV"
	EnvSuffixSandbox    = "_SANDBOX"
)

// 环境模式常量
const (
	EnvModeSandbox    = "sandbox"
	EnvModeTest       = "test"
	EnvModeProduction = "production"
	EnvModeProd       = "prod"
)

// 输出格式常量
const (
	OutputFormatJSON   = "json"
	OutputFormatPretty = "pretty"
)

// 标准化支付状态常量
const (
	PaymentStatusInitialized = "initialized"
	PaymentStatusPaid        = "paid"
	PaymentStatusFailed      = "failed"
	PaymentStatusCanceled    = "canceled"
	PaymentStatusExpired     = "expired"
	PaymentStatusPending     = "pending"
	PaymentStatusUnpaid      = "unpaid"
)

// 标准化付款方式常量
const (
	PaymentMethodCard         = "card"
	PaymentMethodATM          = "atm"
	PaymentMethodCVS          = "cvs"
	PaymentMethodLinePay      = "linepay"
	PaymentMethodMobileWallet = "mobile-wallet"
)

// 服务层结果状态常量
const (
	ResultStatusCreated  = "created"
	ResultStatusFetched  = "fetched"
	ResultStatusRefunded = "refunded"
)

// 支付操作名称
const (
	OperationCreate = "create"
	OperationGet    = "get"
	OperationRefund = "refund"
)
