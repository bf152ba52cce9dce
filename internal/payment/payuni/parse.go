package payuni

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const resultKey = "Result"

var indexedResultPattern = regexp.MustCompile(`^Result\[(\d+)\]\[([^\]]+)\]$`)

// ParsePayload 宽松解析解密后的明文
// 以 { 或 [ 开头按 JSON 解析，否则按表单解析；Result[i][Field] 重组为按序号排列的 Result 列表。
func ParsePayload(plaintext string) map[string]interface{} {
	text := strings.TrimSpace(plaintext)
	if text == "" {
		return map[string]interface{}{}
	}

	var data map[string]interface{}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		data = parseJSONPayload(text)
	}
	if data == nil {
		data = parseFormPayload(text)
	}

	if raw, ok := data[resultKey].(string); ok {
		data[resultKey] = decodeJSONString(raw)
	}
	return data
}

func parseJSONPayload(text string) map[string]interface{} {
	var decoded interface{}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil
	}
	switch v := decoded.(type) {
	case map[string]interface{}:
		return v
	case []interface{}:
		return map[string]interface{}{resultKey: v}
	default:
		return nil
	}
}

func parseFormPayload(text string) map[string]interface{} {
	// 部分键解析失败时 ParseQuery 仍返回其余键值
	values, _ := url.ParseQuery(text)

	data := make(map[string]interface{}, len(values))
	rows := make(map[int]map[string]interface{})
	for key, items := range values {
		value := ""
		if len(items) > 0 {
			value = items[len(items)-1]
		}
		if match := indexedResultPattern.FindStringSubmatch(key); match != nil {
			index, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			row, ok := rows[index]
			if !ok {
				row = make(map[string]interface{})
				rows[index] = row
			}
			row[match[2]] = value
			continue
		}
		data[key] = value
	}

	if len(rows) > 0 {
		indexes := make([]int, 0, len(rows))
		for index := range rows {
			indexes = append(indexes, index)
		}
		sort.Ints(indexes)
		result := make([]interface{}, 0, len(indexes))
		for _, index := range indexes {
			result = append(result, rows[index])
		}
		data[resultKey] = result
	}
	return data
}

func decodeJSONString(raw string) interface{} {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "[") {
		return raw
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return raw
	}
	return decoded
}

// resultRows 取出 Result 中的记录行；没有 Result 时把整个 payload 视为一行
func resultRows(data map[string]interface{}) []map[string]interface{} {
	if len(data) == 0 {
		return nil
	}
	switch v := data[resultKey].(type) {
	case []interface{}:
		rows := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			if row, ok := item.(map[string]interface{}); ok {
				rows = append(rows, row)
			}
		}
		return rows
	case map[string]interface{}:
		return []map[string]interface{}{v}
	case nil:
		return []map[string]interface{}{data}
	default:
		return nil
	}
}
