package apperr

import "errors"

// Code 错误分类码（CLI 输出 error.code 使用）
type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeConfigResolution Code = "CONFIG_RESOLUTION_ERROR"
	CodeNotImplemented   Code = "NOT_IMPLEMENTED"
	CodeNetwork          Code = "NETWORK_ERROR"
	CodeProtocol         Code = "PROTOCOL_ERROR"
	CodeCrypto           Code = "CRYPTO_ERROR"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// 分类哨兵错误，配合 errors.Is 判断
var (
	ErrValidation       = &AppError{Code: CodeValidation, Message: "validation failed"}
	ErrConfigResolution = &AppError{Code: CodeConfigResolution, Message: "provider resolution failed"}
	ErrNotImplemented   = &AppError{Code: CodeNotImplemented, Message: "operation not implemented"}
	ErrNetwork          = &AppError{Code: CodeNetwork, Message: "network request failed"}
	ErrProtocol         = &AppError{Code: CodeProtocol, Message: "gateway protocol error"}
	ErrCrypto           = &AppError{Code: CodeCrypto, Message: "crypto failure"}
)

// AppError 统一错误包装
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误分类码匹配
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WrapError 包装错误
func WrapError(code Code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New 创建不带底层错误的分类错误
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Validation 创建参数校验错误
func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// CodeOf 提取错误分类码，非 AppError 返回 CodeInternal
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
