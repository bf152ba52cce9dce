package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/paid-tw/paid/internal/apperr"
	"github.com/paid-tw/paid/internal/constants"
	"github.com/paid-tw/paid/internal/payment"
)

// Metadata 输出元数据
type Metadata struct {
	Timestamp   string `json:"timestamp"`
	Command     string `json:"command,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// ErrorBody 错误内容
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Envelope 统一输出结构
type Envelope struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Error    *ErrorBody  `json:"error,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

// Success 成功输出
func Success(data interface{}, meta Metadata) Envelope {
	return Envelope{Success: true, Data: data, Metadata: meta}
}

// Failure 错误输出，错误码取自 apperr 分类
func Failure(err error, meta Metadata) Envelope {
	body := &ErrorBody{
		Code:    string(apperr.CodeOf(err)),
		Message: err.Error(),
	}
	var notImpl *payment.NotImplementedError
	if errors.As(err, &notImpl) {
		body.Details = map[string]string{
			"provider":  notImpl.Provider,
			"operation": notImpl.Operation,
		}
	}
	return Envelope{Success: false, Error: body, Metadata: meta}
}

// exitError 已输出过的错误，只携带退出码
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// ExitCode 参数校验错误返回 2，其余错误返回 1
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	if apperr.CodeOf(err) == apperr.CodeValidation {
		return 2
	}
	return 1
}

type printer struct {
	out    io.Writer
	errOut io.Writer
	format string
	now    func() time.Time
}

func (p *printer) meta(command, environment string) Metadata {
	return Metadata{
		Timestamp:   p.now().UTC().Format(time.RFC3339Nano),
		Command:     command,
		Environment: environment,
	}
}

// success 输出成功结果；pretty 为空时 pretty 模式也输出 JSON
func (p *printer) success(command, environment string, data interface{}, pretty func() string) error {
	if p.format == constants.OutputFormatPretty && pretty != nil {
		_, err := fmt.Fprintln(p.out, pretty())
		return err
	}
	return writeJSON(p.out, Success(data, p.meta(command, environment)))
}

// failure 输出错误并返回带退出码的错误
func (p *printer) failure(command, environment string, err error) error {
	envelope := Failure(err, p.meta(command, environment))
	if p.format == constants.OutputFormatPretty {
		_, _ = fmt.Fprintln(p.errOut, renderErrorPretty(envelope.Error))
	} else {
		_ = writeJSON(p.errOut, envelope)
	}
	return &exitError{code: ExitCode(err), err: err}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
