package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/warbler/internal/api/middleware"
	"github.com/d60-Lab/warbler/pkg/metrics"
	"github.com/d60-Lab/warbler/pkg/response"
)

type messageRequest struct {
	Text string `json:"text"`
}

// CreateMessage 发布消息
// @Summary 发布消息
// @Tags 消息
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body messageRequest true "消息内容，最多 140 字符"
// @Success 201 {object} response.Response{data=model.Message}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/messages [post]
func (h *Handler) CreateMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.msgService.Create(c.Request.Context(), middleware.Identity(c), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	metrics.MessagesPosted.Inc()
	response.Created(c, msg)
}

// GetMessage 查看单条消息
// @Summary 查看消息
// @Tags 消息
// @Produce json
// @Param id path int true "消息ID"
// @Success 200 {object} response.Response{data=model.Message}
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{id} [get]
func (h *Handler) GetMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	msg, err := h.msgService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, msg)
}

// DeleteMessage 删除自己的消息
// @Summary 删除消息
// @Tags 消息
// @Produce json
// @Security BearerAuth
// @Param id path int true "消息ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{id} [delete]
func (h *Handler) DeleteMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.msgService.Delete(c.Request.Context(), middleware.Identity(c), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ToggleLike 点赞或取消点赞
// @Summary 点赞切换
// @Tags 消息
// @Produce json
// @Security BearerAuth
// @Param id path int true "消息ID"
// @Success 200 {object} response.Response{data=map[string]bool}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{id}/like [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	liked, err := h.msgService.ToggleLike(c.Request.Context(), middleware.Identity(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"liked": liked})
}

// Timeline 首页时间线：自己与关注的人的最近消息
// @Summary 时间线
// @Tags 消息
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.Message}
// @Failure 401 {object} response.Response
// @Router /api/v1/timeline [get]
func (h *Handler) Timeline(c *gin.Context) {
	list, err := h.msgService.Timeline(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}
