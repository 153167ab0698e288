package controller

import (
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/service"
	"ttrac_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	Service *service.AssignmentService
}

func NewAssignmentController(svc *service.AssignmentService) *AssignmentController {
	return &AssignmentController{Service: svc}
}

// Create godoc
// @Summary 布置作业
// @Description 发布的作业会通知课程内所有已通过审核的学生
// @Tags 作业
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param body body service.CreateAssignmentReq true "作业信息"
// @Success 201 {object} util.Response{data=model.Assignment}
// @Router /api/faculty/courses/{id}/assignments [post]
func (c *AssignmentController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.CreateAssignmentReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	a, err := c.Service.Create(ctx.Request.Context(), actor, courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// ListForCourse godoc
// @Summary 课程作业列表
// @Tags 作业
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Assignment}
// @Router /api/courses/{id}/assignments [get]
func (c *AssignmentController) ListForCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	list, err := c.Service.ListForCourse(actor, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// SaveDraft godoc
// @Summary 保存作业草稿
// @Tags 作业
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "作业ID"
// @Param body body service.SubmissionReq true "作答内容"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission}
// @Router /api/assignments/{id}/draft [post]
func (c *AssignmentController) SaveDraft(ctx *gin.Context) {
	c.write(ctx, c.Service.SaveDraft)
}

// Submit godoc
// @Summary 提交作业
// @Tags 作业
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "作业ID"
// @Param body body service.SubmissionReq true "作答内容"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission}
// @Failure 409 {object} util.Response "已提交"
// @Router /api/assignments/{id}/submit [post]
func (c *AssignmentController) Submit(ctx *gin.Context) {
	c.write(ctx, c.Service.Submit)
}

func (c *AssignmentController) write(ctx *gin.Context, fn func(service.Actor, uint, service.SubmissionReq) (*model.AssignmentSubmission, error)) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SubmissionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	sub, err := fn(actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// Grade godoc
// @Summary 作业评分
// @Description 可以重复评分，分数不超过作业满分
// @Tags 作业
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "提交ID"
// @Param body body service.GradeSubmissionReq true "评分"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission}
// @Router /api/faculty/submissions/{id}/grade [post]
func (c *AssignmentController) Grade(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.GradeSubmissionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	sub, err := c.Service.Grade(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
