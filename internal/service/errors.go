package service

import (
	"errors"
	"fmt"

	"github.com/d60-Lab/warbler/internal/authz"
	"github.com/d60-Lab/warbler/pkg/credential"
)

var (
	ErrInvalidCredential = errors.New("password must not be empty")
	ErrUniqueViolation   = errors.New("integrity constraint violated")
	ErrUnauthorized      = authz.ErrUnauthorized
	ErrNotFound          = errors.New("not found")
	ErrFollowSelf        = errors.New("cannot follow self")
	ErrInvalidInput      = credential.ErrInvalidInput
)

// IntegrityError 标识违反唯一/非空约束的字段
type IntegrityError struct {
	Field  string // username, email; empty when the storage layer did not say
	Reason string // "already taken" or "required"
}

func (e *IntegrityError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrUniqueViolation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrUniqueViolation, e.Field, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrUniqueViolation }

func taken(field string) error   { return &IntegrityError{Field: field, Reason: "already taken"} }
func required(field string) error { return &IntegrityError{Field: field, Reason: "required"} }

// ValidationError 输入校验失败（消息长度等）
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }
