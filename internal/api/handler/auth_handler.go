package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/internal/api/middleware"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/pkg/logger"
	"github.com/d60-Lab/warbler/pkg/metrics"
	"github.com/d60-Lab/warbler/pkg/response"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	ImageURL string `json:"image_url"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Signup 注册并直接登录
// @Summary 注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body signupRequest true "注册信息"
// @Success 201 {object} response.Response{data=tokenResponse}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/auth/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	metrics.RegisterSuccess.Inc()

	token, exp, err := h.sessions.Issue(user.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, tokenResponse{Token: token, ExpiresAt: exp, User: user})
}

// Login 用户名密码登录
// @Summary 登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response{data=tokenResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.LoginFailure.WithLabelValues(metrics.ReasonInvalidRequest).Inc()
		response.BadRequest(c, err.Error())
		return
	}
	user, ok, err := h.authService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !ok {
		metrics.LoginFailure.WithLabelValues(metrics.ReasonBadCredentials).Inc()
		response.Unauthorized(c, "Invalid credentials.")
		return
	}

	token, exp, err := h.sessions.Issue(user.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	metrics.LoginSuccess.Inc()
	logger.Info("user logged in", zap.Uint("user_id", user.ID))
	response.Success(c, tokenResponse{Token: token, ExpiresAt: exp, User: user})
}

// Logout 注销当前令牌
// @Summary 退出登录
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" || middleware.Identity(c).IsAnonymous() {
		response.Unauthorized(c, msgUnauthorized)
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
