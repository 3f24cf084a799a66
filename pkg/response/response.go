package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/pkg/logger"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

func BadRequest(c *gin.Context, msg string) {
	fail(c, http.StatusBadRequest, msg)
}

func Unauthorized(c *gin.Context, msg string) {
	fail(c, http.StatusUnauthorized, msg)
}

func NotFound(c *gin.Context, msg string) {
	fail(c, http.StatusNotFound, msg)
}

func Conflict(c *gin.Context, msg string) {
	fail(c, http.StatusConflict, msg)
}

func TooManyRequests(c *gin.Context, msg string) {
	fail(c, http.StatusTooManyRequests, msg)
}

// InternalError 记录错误并返回 500，不向客户端暴露细节
func InternalError(c *gin.Context, err error) {
	logger.Error("internal error",
		zap.Error(err),
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString("request_id")),
	)
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, "internal server error")
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Code: status, Message: msg})
}
