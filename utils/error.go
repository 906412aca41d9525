package utils

import (
	"github.com/pkg/errors"
)

// WrapError 为 err 附加上下文信息，err 为 nil 时返回 nil。
func WrapError(err error, msg string) error {
	return errors.Wrap(err, msg)
}

func WrapErrorf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// RootCause 返回被多层 WrapError 包裹的原始错误。
func RootCause(err error) error {
	return errors.Cause(err)
}
