package controller

import (
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/service"
	"ttrac_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// NotificationController 通知中心
type NotificationController struct {
	Service   *service.NotificationService
	Generator *service.ActivityGenerator
	Hub       *service.NotificationHub
}

func NewNotificationController(svc *service.NotificationService, generator *service.ActivityGenerator, hub *service.NotificationHub) *NotificationController {
	return &NotificationController{Service: svc, Generator: generator, Hub: hub}
}

// CreateNotificationRequest 给自己发送一条通知（手动提醒或联调测试）
type CreateNotificationRequest struct {
	Title   string                   `json:"title" binding:"required" example:"Read chapter 3"`
	Message string                   `json:"message" example:"Before Friday's lab"`
	Type    model.NotificationType   `json:"type" example:"announcement"`
	Origin  model.NotificationOrigin `json:"origin" example:"manual"`
}

// HandleWebSocket godoc
// @Summary 通知实时推送
// @Description 建立 WebSocket 连接。首次连接推送 SNAPSHOT，之后每次变更推送 NOTIFICATION_CHANGED
// @Tags 通知中心
// @Param token query string false "JWT（浏览器无法设置请求头时使用）"
// @Router /api/notifications/ws [get]
func (c *NotificationController) HandleWebSocket(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	service.ServeNotificationWs(c.Hub, ctx.Writer, ctx.Request, actor.ID)
}

// List godoc
// @Summary 通知列表
// @Description 已过滤测试数据并去重，按创建时间倒序。管理员可用 all=true 查看全部
// @Tags 通知中心
// @Produce json
// @Security BearerAuth
// @Param all query bool false "包含测试数据（仅管理员）"
// @Success 200 {object} util.Response{data=[]model.Notification}
// @Router /api/notifications [get]
func (c *NotificationController) List(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	opts := service.ListOptions{IncludeSynthetic: actor.IsAdmin() && ctx.Query("all") == "true"}
	list, err := c.Service.List(ctx.Request.Context(), actor.ID, opts)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"items":       list,
		"total":       len(list),
		"unreadCount": service.UnreadCount(list),
	})
}

// UnreadCount godoc
// @Summary 未读数量
// @Tags 通知中心
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	count, err := c.Service.UnreadCount(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"unreadCount": count})
}

// Create godoc
// @Summary 创建通知
// @Description 通知的接收人固定为当前用户
// @Tags 通知中心
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateNotificationRequest true "通知内容"
// @Success 201 {object} util.Response{data=model.Notification}
// @Router /api/notifications [post]
func (c *NotificationController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req CreateNotificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Type == "" {
		req.Type = model.NotificationAnnouncement
	}
	if req.Origin == "" || req.Origin == model.OriginSystem {
		req.Origin = model.OriginManual
	}

	n, err := c.Service.Create(ctx.Request.Context(), service.CreateNotificationRequest{
		UserID:  actor.ID,
		Title:   req.Title,
		Message: req.Message,
		Type:    req.Type,
		Origin:  req.Origin,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, n)
}

// MarkRead godoc
// @Summary 标记已读
// @Tags 通知中心
// @Produce json
// @Security BearerAuth
// @Param id path string true "通知ID"
// @Success 200 {object} util.Response{data=model.Notification}
// @Failure 404 {object} util.Response
// @Router /api/notifications/{id}/read [patch]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	n, err := c.Service.MarkRead(ctx.Request.Context(), actor.ID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, n)
}

// MarkAllRead godoc
// @Summary 全部标记已读
// @Tags 通知中心
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/notifications/read-all [post]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	count, err := c.Service.MarkAllRead(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"updated": count})
}

// Delete godoc
// @Summary 删除通知
// @Tags 通知中心
// @Produce json
// @Security BearerAuth
// @Param id path string true "通知ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/notifications/{id} [delete]
func (c *NotificationController) Delete(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	if err := c.Service.Delete(ctx.Request.Context(), actor.ID, ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Clear godoc
// @Summary 清空通知
// @Tags 通知中心
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/notifications [delete]
func (c *NotificationController) Clear(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	count, err := c.Service.Clear(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": count})
}

// Generate godoc
// @Summary 根据课程动态生成通知
// @Description 把教师课程下的新提交、测验作答和选课申请转成通知，重复调用不会产生重复通知
// @Tags 通知中心
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.GenerateResult}
// @Router /api/faculty/notifications/generate [post]
func (c *NotificationController) Generate(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	res, err := c.Generator.GenerateForFaculty(ctx.Request.Context(), actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
