package controller

import (
	"strings"
	"ttrac_backend/internal/service"
	"ttrac_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	Service *service.CourseService
}

func NewCourseController(svc *service.CourseService) *CourseController {
	return &CourseController{Service: svc}
}

// Create godoc
// @Summary 创建课程
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateCourseReq true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /api/faculty/courses [post]
func (c *CourseController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.CreateCourseReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.Service.Create(actor, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// ListMine godoc
// @Summary 我的课程
// @Description 教师返回开设的课程，学生返回已通过审核的课程
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Course}
// @Router /api/courses/mine [get]
func (c *CourseController) ListMine(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courses, err := c.Service.ListMine(actor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// ListMaterials godoc
// @Summary 课程资料列表
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.CourseMaterial}
// @Router /api/courses/{id}/materials [get]
func (c *CourseController) ListMaterials(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	list, err := c.Service.ListMaterials(actor, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// UploadMaterial godoc
// @Summary 上传课程资料
// @Tags 课程
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param title formData string true "标题"
// @Param file formData file true "文件"
// @Success 201 {object} util.Response{data=model.CourseMaterial}
// @Router /api/faculty/courses/{id}/materials [post]
func (c *CourseController) UploadMaterial(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if file.Size > util.MaxMaterialSize {
		util.BadRequest(ctx, "file too large")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	contentType, err := util.ValidateMimeType(src, util.MaterialMimeTypes)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if _, err := src.Seek(0, 0); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	title := strings.TrimSpace(ctx.PostForm("title"))
	if title == "" {
		title = file.Filename
	}
	material, err := c.Service.UploadMaterial(ctx.Request.Context(), actor, courseID, service.MaterialUpload{
		Title:       title,
		Filename:    file.Filename,
		ContentType: contentType,
		Size:        file.Size,
		Reader:      src,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, material)
}

// DeleteMaterial godoc
// @Summary 删除课程资料
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Param id path int true "资料ID"
// @Success 200 {object} util.Response
// @Router /api/faculty/materials/{id} [delete]
func (c *CourseController) DeleteMaterial(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.Service.DeleteMaterial(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
