package project

import (
	"errors"
	"fmt"
)

// Error 的种类，接口层据此决定状态码
const (
	KindNotFound     = "NotFound"
	KindUnauthorized = "Unauthorized"
	KindValidation   = "ValidationFailed"
	KindIntegrity    = "IntegrityViolation"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrIntegrity    = errors.New("integrity violation")
)

var kindSentinel = map[string]error{
	KindNotFound:     ErrNotFound,
	KindUnauthorized: ErrUnauthorized,
	KindValidation:   ErrValidation,
	KindIntegrity:    ErrIntegrity,
}

// Error 是可以直接展示给调用方的业务错误，Detail 为给人看的描述。
type Error struct {
	Kind   string
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return kindSentinel[e.Kind]
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) error {
	return &Error{Kind: KindUnauthorized, Detail: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

func Integrity(format string, args ...interface{}) error {
	return &Error{Kind: KindIntegrity, Detail: fmt.Sprintf(format, args...)}
}

func missingData(field string) error {
	return Invalid("Missing data in request (%s)", field)
}

// AsError 取出 err 链上的 *Error，没有时返回 nil。
func AsError(err error) *Error {
	var target *Error
	if errors.As(err, &target) {
		return target
	}
	return nil
}
