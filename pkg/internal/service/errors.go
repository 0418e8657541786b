// Package service 实现图片去重、链接解析、相册聚合与上传令牌等业务.
package service

import (
	"errors"
)

// 业务错误，handler 通过 errors.Is 映射到 HTTP 状态.
var (
	ErrAdmission           = errors.New("admission rejected")
	ErrTokenInvalid        = errors.New("invalid token")
	ErrAuthRejected        = errors.New("incorrect token")
	ErrNotFound            = errors.New("not found")
	ErrIdentifierExhausted = errors.New("identifier space exhausted")
	ErrStorageFault        = errors.New("storage fault")
	ErrNoPhotosToGroup     = errors.New("no photos to group")
	ErrAlreadyExists       = errors.New("already exists")
)

// AdmissionError 携带面向用户的拒绝原因.
type AdmissionError struct {
	Name    string
	Message string
}

func (e *AdmissionError) Error() string { return e.Message }

func (e *AdmissionError) Is(target error) bool { return target == ErrAdmission }

func admissionErr(name, format string) error {
	return &AdmissionError{Name: name, Message: `"` + name + `" ` + format}
}

// storageFault 包装底层错误，保留原因链.
func storageFault(op string, err error) error {
	return &faultError{op: op, err: err}
}

type faultError struct {
	op  string
	err error
}

func (e *faultError) Error() string { return e.op + ": " + e.err.Error() }

func (e *faultError) Unwrap() []error { return []error{ErrStorageFault, e.err} }
