package payuni

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paid-tw/paid/internal/constants"
	"github.com/paid-tw/paid/internal/payment"

	"github.com/shopspring/decimal"
)

var tradeStatusMap = map[string]string{
	"0": constants.PaymentStatusInitialized,
	"1": constants.PaymentStatusPaid,
	"2": constants.PaymentStatusFailed,
	"3": constants.PaymentStatusCanceled,
	"4": constants.PaymentStatusExpired,
	"8": constants.PaymentStatusPending,
	"9": constants.PaymentStatusUnpaid,
}

var paymentTypeMap = map[string]string{
	"1":  constants.PaymentMethodCard,
	"2":  constants.PaymentMethodATM,
	"3":  constants.PaymentMethodCVS,
	"9":  constants.PaymentMethodLinePay,
	"11": constants.PaymentMethodMobileWallet,
}

// NormalizeTradeStatus 转换 TradeStatus，未知代码原样返回
func NormalizeTradeStatus(code string) string {
	if status, ok := tradeStatusMap[code]; ok {
		return status
	}
	return code
}

// NormalizePaymentType 转换 PaymentType，未知代码原样返回
func NormalizePaymentType(code string) string {
	if method, ok := paymentTypeMap[code]; ok {
		return method
	}
	return code
}

// Normalize 将一行网关记录转换为标准付款记录
func Normalize(row map[string]interface{}) payment.NormalizedPayment {
	return payment.NormalizedPayment{
		Status:     NormalizeTradeStatus(stringField(row, "TradeStatus")),
		Method:     NormalizePaymentType(stringField(row, "PaymentType")),
		Amount:     parseAmount(row["TradeAmt"]),
		PaidAt:     stringField(row, "PayTime"),
		TradeNo:    stringField(row, "TradeNo"),
		MerTradeNo: stringField(row, "MerTradeNo"),
		Raw:        row,
	}
}

// NormalizeAll 标准化 payload 中的所有记录，第 0 行为主记录
func NormalizeAll(data map[string]interface{}) []payment.NormalizedPayment {
	rows := resultRows(data)
	payments := make([]payment.NormalizedPayment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, Normalize(row))
	}
	return payments
}

func stringField(row map[string]interface{}, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return decimal.NewFromFloat(v).String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// parseAmount 接受字符串或数字，非数字返回 nil
func parseAmount(value interface{}) *decimal.Decimal {
	var (
		amount decimal.Decimal
		err    error
	)
	switch v := value.(type) {
	case string:
		amount, err = decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		amount = decimal.NewFromFloat(v)
	case int:
		amount = decimal.NewFromInt(int64(v))
	case int64:
		amount = decimal.NewFromInt(v)
	case json.Number:
		amount, err = decimal.NewFromString(v.String())
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &amount
}
