package payuni

import "strings"

const unknownStatusMessage = "unknown error"

// statusMessages 查询接口的网关状态码
var statusMessages = map[string]string{
	"QUERY01001": "merchant id is required",
	"QUERY01002": "encrypt info is required",
	"QUERY01003": "hash info is required",
	"QUERY01004": "version is invalid",
	"QUERY02001": "merchant not found or disabled",
	"QUERY02002": "hash info verification failed",
	"QUERY02003": "encrypt info decryption failed",
	"QUERY02004": "timestamp is expired",
	"QUERY03001": "trade not found",
	"QUERY03002": "trade query failed",
	"QUERY04001": "merchant trade no and trade no cannot both be empty",
}

// StatusMessage 返回网关状态码对应的说明，未收录时为 unknown error
func StatusMessage(status string) string {
	if message, ok := statusMessages[strings.ToUpper(strings.TrimSpace(status))]; ok {
		return message
	}
	return unknownStatusMessage
}
