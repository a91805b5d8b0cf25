package entity

import (
	"errors"
	"fmt"
)

// ErrorKind 领域错误类别，调用方可据此分支处理而无需解析错误文本
type ErrorKind string

const (
	ErrInvalidTransition ErrorKind = "INVALID_TRANSITION"
	ErrMissingRoute      ErrorKind = "MISSING_ROUTE"
	ErrMissingDepartment ErrorKind = "MISSING_DEPARTMENT"
	ErrFormula           ErrorKind = "FORMULA_ERROR"
	ErrValidation        ErrorKind = "VALIDATION_ERROR"
)

// DomainError 带类别标签的领域错误
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError 创建领域错误
func NewDomainError(kind ErrorKind, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapDomainError 包装底层错误为领域错误
func WrapDomainError(kind ErrorKind, err error, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsKind 判断错误（含包装链）是否属于指定类别
func IsKind(err error, kind ErrorKind) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
