package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// check 将 validator 的错误转换为领域错误：缺失的唯一字段按完整性错误处理
func check(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Tag() == "required" && (field == "username" || field == "email") {
		return required(field)
	}
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Msg: "is required"}
	case "max":
		return &ValidationError{Field: field, Msg: "must be at most " + fe.Param() + " characters"}
	case "email":
		return &ValidationError{Field: field, Msg: "must be a valid email address"}
	default:
		return &ValidationError{Field: field, Msg: "failed " + fe.Tag() + " validation"}
	}
}
