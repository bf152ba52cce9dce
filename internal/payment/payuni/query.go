package payuni

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/logger"
	"github.com/paid-tw/paid/internal/payment"
)

const successStatus = "SUCCESS"

// QueryRequest 交易查询明文字段，MerTradeNo 与 TradeNo 必须二选一
type QueryRequest struct {
	MerID      string
	MerTradeNo string
	TradeNo    string
	Timestamp  int64
}

// Validate 校验查询字段
func (q QueryRequest) Validate() error {
	if strings.TrimSpace(q.MerID) == "" {
		return apperr.Validation("payuni merchant id is required")
	}
	hasMer := strings.TrimSpace(q.MerTradeNo) != ""
	hasTrade := strings.TrimSpace(q.TradeNo) != ""
	if hasMer == hasTrade {
		return apperr.Validation("exactly one of merchant trade no or trade no is required")
	}
	return nil
}

// Encode 按固定顺序序列化为 MerID=..&MerTradeNo|TradeNo=..&Timestamp=..
func (q QueryRequest) Encode() (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("MerID=")
	b.WriteString(url.QueryEscape(strings.TrimSpace(q.MerID)))
	if trade := strings.TrimSpace(q.MerTradeNo); trade != "" {
		b.WriteString("&MerTradeNo=")
		b.WriteString(url.QueryEscape(trade))
	} else {
		b.WriteString("&TradeNo=")
		b.WriteString(url.QueryEscape(strings.TrimSpace(q.TradeNo)))
	}
	b.WriteString("&Timestamp=")
	b.WriteString(strconv.FormatInt(q.Timestamp, 10))
	return b.String(), nil
}

// queryResponse 网关响应体
type queryResponse struct {
	Status      string `json:"Status"`
	Message     string `json:"Message"`
	EncryptInfo string `json:"EncryptInfo"`
	HashInfo    string `json:"HashInfo"`
}

// handleQueryResponse 处理网关响应
// 非 SUCCESS 与解密失败都转换为 OK=false 的结果，只有响应体无法解析时返回错误。
func handleQueryResponse(codec *Codec, body []byte) (*payment.Result, error) {
	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.WrapError(apperr.CodeProtocol, "payuni response invalid", err)
	}

	status := strings.TrimSpace(resp.Status)
	if status != successStatus {
		logger.Infow("payuni_query_rejected", "status", status, "gateway_message", resp.Message)
		return &payment.Result{
			OK:      false,
			Code:    status,
			Message: StatusMessage(status),
			Raw: map[string]interface{}{
				"Status":  resp.Status,
				"Message": resp.Message,
			},
		}, nil
	}

	result := &payment.Result{OK: true, Code: status}
	data := map[string]interface{}{}
	if strings.TrimSpace(resp.EncryptInfo) != "" {
		plaintext, err := codec.Open(resp.EncryptInfo, resp.HashInfo)
		if err != nil {
			logger.Warnw("payuni_query_decrypt_failed", "error", err)
			result.OK = false
			result.Code = string(apperr.CodeCrypto)
			result.Message = err.Error()
		} else {
			data = ParsePayload(plaintext)
		}
	}

	result.Raw = data
	result.Payments = NormalizeAll(data)
	if len(result.Payments) > 0 {
		result.Payment = &result.Payments[0]
	}
	return result, nil
}
