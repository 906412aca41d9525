package common

import (
	"annopedia-backend/domain/project"
	"errors"
)

var (
	ErrRequestParamEmpty               = errors.New("request param empty")
	ErrRequestParamInvalid             = errors.New("request param invalid")
	ErrContentTypeNotMultipartFormData = errors.New("content-type not multipart/form-data")
)

// 业务错误的种类，与 project.Error 共用同一组哨兵
var (
	ErrNotFound     = project.ErrNotFound
	ErrUnauthorized = project.ErrUnauthorized
	ErrValidation   = project.ErrValidation
	ErrIntegrity    = project.ErrIntegrity
)
