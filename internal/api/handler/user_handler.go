package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/api/middleware"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/pkg/response"
)

type profileRequest struct {
	Password       string  `json:"password" binding:"required"`
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	ImageURL       *string `json:"image_url"`
	HeaderImageURL *string `json:"header_image_url"`
	Bio            *string `json:"bio"`
	Location       *string `json:"location"`
}

type userDetailResponse struct {
	*service.UserDetail
	IsFollowing *bool `json:"is_following,omitempty"`
}

// ListUsers 用户列表，q 按用户名子串过滤（区分大小写）
// @Summary 用户列表
// @Tags 用户
// @Produce json
// @Param q query string false "用户名子串"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	page, pageSize := pageParams(c)
	q := c.Query("q")
	list, err := h.userService.List(c.Request.Context(), q, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"q": q, "page": page, "list": list})
}

// GetUser 用户主页：资料、计数与最近消息
// @Summary 用户主页
// @Tags 用户
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} response.Response{data=userDetailResponse}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	detail, err := h.userService.Detail(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	out := userDetailResponse{UserDetail: detail}
	if me, ok := middleware.Identity(c).UserID(); ok && me != id {
		following, err := h.relService.IsFollowing(ctx, me, id)
		if err != nil {
			fail(c, err)
			return
		}
		out.IsFollowing = &following
	}
	response.Success(c, out)
}

// UpdateProfile 修改当前用户资料，需要再次输入密码
// @Summary 修改资料
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body profileRequest true "资料"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/users/profile [patch]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.Identity(c), req.Password, service.ProfileUpdate{
		Username:       req.Username,
		Email:          req.Email,
		ImageURL:       req.ImageURL,
		HeaderImageURL: req.HeaderImageURL,
		Bio:            req.Bio,
		Location:       req.Location,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, user)
}

// DeleteUser 删除当前用户及其全部消息、关注与点赞，并注销当前令牌
// @Summary 注销账号
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/users/profile [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.userService.Delete(ctx, middleware.Identity(c)); err != nil {
		fail(c, err)
		return
	}
	if err := h.sessions.Logout(ctx, middleware.BearerToken(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// LikedMessages 用户点赞过的消息
// @Summary 点赞列表
// @Tags 用户
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} response.Response{data=[]model.Message}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id}/likes [get]
func (h *Handler) LikedMessages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.msgService.LikedMessages(c.Request.Context(), id, 0)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}
