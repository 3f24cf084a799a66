package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/api/middleware"
	"github.com/d60-Lab/warbler/pkg/metrics"
	"github.com/d60-Lab/warbler/pkg/response"
)

// Follow 当前用户关注 id
// @Summary 关注用户
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param id path int true "被关注用户ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/follow/{id} [post]
func (h *Handler) Follow(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.relService.Follow(c.Request.Context(), middleware.Identity(c), id); err != nil {
		fail(c, err)
		return
	}
	metrics.FollowsCreated.Inc()
	response.Success(c, nil)
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Produce json
// @Security BearerAuth
// @Param id path int true "被取消关注用户ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/stop-following/{id} [post]
func (h *Handler) Unfollow(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.relService.Unfollow(c.Request.Context(), middleware.Identity(c), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Param id path int true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	list, err := h.relService.ListFollowing(c.Request.Context(), id, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "list": list})
}

// ListFollowers 查询某用户的粉丝
// @Summary 查询粉丝列表
// @Tags 关系链
// @Param id path int true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	list, err := h.relService.ListFollowers(c.Request.Context(), id, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "list": list})
}
