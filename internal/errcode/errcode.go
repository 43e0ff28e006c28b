// Package errcode 定义业务层与 API 层共用的错误分类。
//
// NotFound、Forbidden、Conflict 与 Validation 属于业务拒绝，调用方不应重试；其余一律归为 Internal。
package errcode

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Code 为错误分类。
type Code string

const (
	CodeNotFound   Code = "NOT_FOUND"
	CodeForbidden  Code = "FORBIDDEN"
	CodeConflict   Code = "CONFLICT"
	CodeValidation Code = "VALIDATION"
	CodeInternal   Code = "INTERNAL"
)

// Error 为带分类的错误，保留产生时的堆栈。
type Error struct {
	Code    Code
	Message string
	Err     error
	Stack   []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 构造 Error，记录调用处堆栈；被包装的错误自带堆栈时沿用其堆栈。
func New(code Code, message string, err error) *Error {
	var stack []byte
	if err != nil {
		var stackErr *goerrors.Error
		if errors.As(err, &stackErr) {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.Wrap(message, 2).Stack()
	}

	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message, nil)
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message, nil)
}

func Conflict(message string, err error) *Error {
	return New(CodeConflict, message, err)
}

func Validation(message string) *Error {
	return New(CodeValidation, message, nil)
}

func Internal(message string, err error) *Error {
	return New(CodeInternal, message, err)
}

// CodeOf 返回 err 的分类，未分类错误视为 CodeInternal。
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is 判断 err 是否属于 code 分类。
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf 返回分类错误中面向客户端的提示。
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != CodeInternal {
		return e.Message
	}
	return "internal error"
}
