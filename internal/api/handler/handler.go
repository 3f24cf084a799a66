package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/session"
	"github.com/d60-Lab/warbler/pkg/response"
)

const msgUnauthorized = "Access unauthorized."

// Handler 聚合各业务服务，路由方法定义在各 *_handler.go 中
type Handler struct {
	authService service.AuthService
	userService service.UserService
	relService  service.RelationshipService
	msgService  service.MessageService
	sessions    *session.Manager
}

func NewHandler(
	authService service.AuthService,
	userService service.UserService,
	relService service.RelationshipService,
	msgService service.MessageService,
	sessions *session.Manager,
) *Handler {
	return &Handler{
		authService: authService,
		userService: userService,
		relService:  relService,
		msgService:  msgService,
		sessions:    sessions,
	}
}

// fail maps service errors onto HTTP responses.
func fail(c *gin.Context, err error) {
	var (
		integrity  *service.IntegrityError
		validation *service.ValidationError
	)
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		response.Unauthorized(c, msgUnauthorized)
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.As(err, &integrity):
		response.Conflict(c, integrity.Error())
	case errors.As(err, &validation):
		response.BadRequest(c, validation.Error())
	case errors.Is(err, service.ErrInvalidCredential),
		errors.Is(err, service.ErrFollowSelf),
		errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

// pathID 解析路径中的数字 ID，失败时直接写 404
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.NotFound(c, "not found")
		return 0, false
	}
	return uint(id), true
}

func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "0"))
	return page, pageSize
}
