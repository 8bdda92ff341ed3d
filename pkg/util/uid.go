package util

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateShortID 生成自定义的16位ID
func GenerateShortID() string {
	fullUUID := uuid.New().String()
	return strings.ReplaceAll(fullUUID, "-", "")[:16]
}

// RandomSuffix 生成指定长度的随机后缀
func RandomSuffix(n int) string {
	s := strings.ReplaceAll(uuid.New().String(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}
