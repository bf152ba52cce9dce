package cli

import (
	"fmt"
	"strings"

	"github.com/paid-tw/paid/internal/constants"
	"github.com/paid-tw/paid/internal/payment"
	"github.com/paid-tw/paid/internal/service"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

const (
	prettyLabelWidth  = 14
	doctorLabelWidth  = 22
	prettyPlaceholder = "-"
)

var providerDisplayNames = map[string]string{
	constants.ProviderPayuni:   "PAYUNi 統一金流",
	constants.ProviderEcpay:    "綠界科技 ECPay",
	constants.ProviderNewebpay: "NewebPay 藍新金流",
}

var statusLabels = map[string]string{
	constants.PaymentStatusPaid:        "已付款",
	constants.PaymentStatusFailed:      "付款失敗",
	constants.PaymentStatusCanceled:    "已取消",
	constants.PaymentStatusExpired:     "已逾期",
	constants.PaymentStatusPending:     "待確認",
	constants.PaymentStatusUnpaid:      "未付款",
	constants.PaymentStatusInitialized: "取號成功",
}

var methodLabels = map[string]string{
	constants.PaymentMethodCard:         "信用卡",
	constants.PaymentMethodLinePay:      "LINE Pay",
	constants.PaymentMethodATM:          "ATM",
	constants.PaymentMethodCVS:          "超商",
	constants.PaymentMethodMobileWallet: "街口支付",
}

var paymentTypeLabels = map[string]string{
	"1":  "信用卡",
	"2":  "ATM 轉帳",
	"3":  "超商代碼/條碼",
	"5":  "超商取貨付款",
	"6":  "愛金卡",
	"7":  "AFTEE 後支付",
	"9":  "LINE Pay",
	"10": "宅配到付",
	"11": "街口支付",
}

// displayWidth 终端显示宽度，全角与东亚宽字符计 2
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func padRight(text string, size, minGap int) string {
	gap := size - displayWidth(text)
	if gap < minGap {
		gap = minGap
	}
	return text + strings.Repeat(" ", gap)
}

func kv(label, value string) string {
	return padRight(label, prettyLabelWidth, 2) + value
}

func lookupLabel(labels map[string]string, key string) string {
	if key == "" {
		return prettyPlaceholder
	}
	if label, ok := labels[key]; ok {
		return label
	}
	return key
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return prettyPlaceholder
	}
	return value
}

func formatMoney(amount *decimal.Decimal) string {
	if amount == nil {
		return prettyPlaceholder
	}
	return "$" + amount.String()
}

func rawString(raw map[string]interface{}, key string) string {
	if raw == nil {
		return ""
	}
	switch v := raw[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprint(v)
	}
}

func rawAmount(raw map[string]interface{}, key string) *decimal.Decimal {
	value := rawString(raw, key)
	if value == "" {
		return nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return nil
	}
	return &amount
}

func formatCard(raw map[string]interface{}) string {
	card6, card4 := rawString(raw, "Card6No"), rawString(raw, "Card4No")
	if card6 == "" || card4 == "" {
		return prettyPlaceholder
	}
	return card6 + "******" + card4
}

// renderPaymentPretty 交易明细
func renderPaymentPretty(result *service.GetPaymentResult) string {
	record := payment.NormalizedPayment{}
	if result.Data != nil {
		record = *result.Data
	}
	status := record.Status
	if status == "" {
		status = result.Status
	}

	lines := []string{
		"交易明細",
		kv("Provider", lookupLabel(providerDisplayNames, result.Provider)),
		kv("環境", result.Environment),
	}
	if result.Result != nil && !result.Result.OK {
		lines = append(lines,
			kv("查詢結果", "失敗"),
			kv("錯誤代碼", orPlaceholder(result.Result.Code)),
			kv("錯誤訊息", orPlaceholder(result.Result.Message)),
		)
	}
	lines = append(lines,
		kv("狀態", lookupLabel(statusLabels, status)),
		kv("商店訂單編號", orPlaceholder(record.MerTradeNo)),
		kv("UNi 序號", orPlaceholder(record.TradeNo)),
		kv("付款方式", lookupLabel(methodLabels, record.Method)),
		kv("金額", formatMoney(record.Amount)),
		kv("付款時間", orPlaceholder(record.PaidAt)),
		"",
		"付款資訊",
		kv("支付工具", lookupLabel(paymentTypeLabels, rawString(record.Raw, "PaymentType"))),
		kv("卡號", formatCard(record.Raw)),
		kv("發卡銀行", orPlaceholder(rawString(record.Raw, "CardBank"))),
		kv("授權碼", orPlaceholder(rawString(record.Raw, "AuthCode"))),
		kv("手續費", formatMoney(rawAmount(record.Raw, "TradeFee"))),
	)
	if result.Result != nil && len(result.Result.Payments) > 1 {
		lines = append(lines, "", fmt.Sprintf("共 %d 筆交易，僅顯示第 1 筆", len(result.Result.Payments)))
	}
	return strings.Join(lines, "\n")
}

// renderDoctorPretty 检查报告
func renderDoctorPretty(report *service.DoctorReport) string {
	lines := []string{
		fmt.Sprintf("Doctor (%s)", lookupLabel(providerDisplayNames, report.Provider)),
		"",
	}
	missing := make(map[string]struct{}, len(report.Env.Missing))
	for _, key := range report.Env.Missing {
		missing[key] = struct{}{}
	}
	for _, key := range report.Env.Required {
		if _, ok := missing[key]; ok {
			lines = append(lines,
				"✗ "+padRight(key, doctorLabelWidth, 1)+"未設定",
				"  建議：export "+key+"=...",
			)
			continue
		}
		lines = append(lines, "✓ "+padRight(key, doctorLabelWidth, 1)+"已設定（來源: "+report.Env.Sources[key]+"）")
	}
	if report.HasConfig || len(report.Env.Missing) > 0 {
		mark, text := "!", "未設定"
		if report.HasConfig {
			mark, text = "✓", "已設定"
		}
		lines = append(lines, mark+" "+padRight("config.toml", doctorLabelWidth, 1)+text)
	}
	if report.PaidEnv != "" {
		lines = append(lines, "✓ "+padRight(constants.EnvMode, doctorLabelWidth, 1)+report.PaidEnv)
	}
	result := "WARN"
	if report.OK {
		result = "OK"
	}
	lines = append(lines, "", "結果："+result)
	return strings.Join(lines, "\n")
}

// renderProvidersPretty 支付服务清单
func renderProvidersPretty(providers []providerInfo) string {
	lines := make([]string, 0, len(providers))
	for _, p := range providers {
		lines = append(lines, padRight(p.Name, 10, 2)+p.DisplayName)
	}
	return strings.Join(lines, "\n")
}

func renderErrorPretty(body *ErrorBody) string {
	if body == nil {
		return "❌ Error"
	}
	return fmt.Sprintf("❌ Error: %s (%s)", body.Message, body.Code)
}
