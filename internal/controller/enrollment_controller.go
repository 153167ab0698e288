package controller

import (
	"context"
	"ttrac_backend/internal/model"
	"ttrac_backend/internal/service"
	"ttrac_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	Service *service.EnrollmentService
}

func NewEnrollmentController(svc *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{Service: svc}
}

// Request godoc
// @Summary 申请选课
// @Description 被拒绝后可以重新申请，沿用原申请记录
// @Tags 选课
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 409 {object} util.Response "已申请或已通过"
// @Router /api/courses/{id}/enroll [post]
func (c *EnrollmentController) Request(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	e, err := c.Service.Request(ctx.Request.Context(), actor.ID, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, e)
}

// ListMine godoc
// @Summary 我的选课申请
// @Tags 选课
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /api/enrollments/mine [get]
func (c *EnrollmentController) ListMine(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	list, err := c.Service.ListMine(actor.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// ListForCourse godoc
// @Summary 课程选课申请
// @Tags 选课
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param status query string false "pending|approved|declined"
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /api/faculty/courses/{id}/enrollments [get]
func (c *EnrollmentController) ListForCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	list, err := c.Service.ListForCourse(actor, courseID, ctx.Query("status"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Approve godoc
// @Summary 通过选课申请
// @Tags 选课
// @Produce json
// @Security BearerAuth
// @Param id path int true "申请ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Router /api/faculty/enrollments/{id}/approve [post]
func (c *EnrollmentController) Approve(ctx *gin.Context) {
	c.decide(ctx, c.Service.Approve)
}

// Decline godoc
// @Summary 拒绝选课申请
// @Tags 选课
// @Produce json
// @Security BearerAuth
// @Param id path int true "申请ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Router /api/faculty/enrollments/{id}/decline [post]
func (c *EnrollmentController) Decline(ctx *gin.Context) {
	c.decide(ctx, c.Service.Decline)
}

func (c *EnrollmentController) decide(ctx *gin.Context, fn func(context.Context, service.Actor, uint) (*model.Enrollment, error)) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	e, err := fn(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, e)
}
