package httpx

import "github.com/pkg/errors"

// 鉴权失败的哨兵错误；是否跳转登录由调用方决定
var (
	ErrUnauthorized = errors.New("unauthorized: please sign in again")
	ErrForbidden    = errors.New("forbidden: access denied")
)

// StatusError 非2xx响应归一化后的错误
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}
