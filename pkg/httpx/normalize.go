package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeError 将非2xx响应体归一化为一条可读的错误消息
//
// Precedence:
//  1. validation-error array: join every element's msg with "; "
//  2. object with a detail field: unwrap it with the same rules
//  3. non-empty plain string body: used verbatim
//  4. no usable body (empty, or a bare JSON scalar): the HTTP status line
//  5. other objects: the body stringified as JSON
//
// The original structured body is discarded after this transformation.
func NormalizeError(body []byte, statusCode int, status string) string {
	fallback := status
	if fallback == "" {
		fallback = fmt.Sprintf("HTTP error! status: %d", statusCode)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fallback
	}

	var data interface{}
	if err := json.Unmarshal(trimmed, &data); err != nil {
		// 非JSON响应体，原样返回
		return string(trimmed)
	}

	switch v := data.(type) {
	case []interface{}:
		if msg := joinValidationMessages(v); msg != "" {
			return msg
		}
		return fallback
	case map[string]interface{}:
		if detail, ok := v["detail"]; ok {
			if msg := unwrapDetail(detail); msg != "" {
				return msg
			}
			return fallback
		}
		return stringify(v)
	case string:
		if v != "" {
			return v
		}
		return fallback
	default:
		// null、数字、布尔等标量没有可用的错误信息
		return fallback
	}
}

func joinValidationMessages(items []interface{}) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			if msg, ok := m["msg"].(string); ok {
				parts = append(parts, msg)
				continue
			}
		}
		parts = append(parts, stringify(item))
	}
	return strings.Join(parts, "; ")
}

func unwrapDetail(detail interface{}) string {
	switch v := detail.(type) {
	case string:
		return v
	case []interface{}:
		return joinValidationMessages(v)
	case map[string]interface{}:
		if msg, ok := v["msg"].(string); ok {
			return msg
		}
		return stringify(v)
	default:
		return fmt.Sprint(v)
	}
}

func stringify(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
