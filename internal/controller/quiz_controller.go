package controller

import (
	"ttrac_backend/internal/service"
	"ttrac_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service *service.QuizService
}

func NewQuizController(svc *service.QuizService) *QuizController {
	return &QuizController{Service: svc}
}

// SubmitAttemptRequest 作答内容 question_id -> answer
type SubmitAttemptRequest struct {
	Answers map[string]string `json:"answers"`
}

// Create godoc
// @Summary 创建测验
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param body body service.CreateQuizReq true "测验与题目"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Router /api/faculty/courses/{id}/quizzes [post]
func (c *QuizController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.CreateQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.Service.CreateQuiz(ctx.Request.Context(), actor, courseID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// Publish godoc
// @Summary 发布测验
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /api/faculty/quizzes/{id}/publish [post]
func (c *QuizController) Publish(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	quiz, err := c.Service.Publish(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// ListForCourse godoc
// @Summary 课程测验列表
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Quiz}
// @Router /api/courses/{id}/quizzes [get]
func (c *QuizController) ListForCourse(ctx *gin.Context) {
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

// StartAttempt godoc
// @Summary 开始作答
// @Description 已有未提交的作答时直接返回
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Router /api/quizzes/{id}/attempts [post]
func (c *QuizController) StartAttempt(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	attempt, err := c.Service.StartAttempt(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// SubmitAttempt godoc
// @Summary 提交作答
// @Description 客观题立即评分；含主观题时状态为 submitted，待教师评分
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Param body body SubmitAttemptRequest true "答案"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Router /api/quiz-attempts/{id}/submit [post]
func (c *QuizController) SubmitAttempt(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	attempt, err := c.Service.SubmitAttempt(ctx.Request.Context(), actor, ctx.Param("id"), req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// GradeQuestionRequest 主观题评分
type GradeQuestionRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	Points     int    `json:"points"`
	Comment    string `json:"comment"`
}

// GradeQuestion godoc
// @Summary 主观题评分
// @Description 评分后在同一事务中重算总分，所有主观题评完后状态变为 graded
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Param body body GradeQuestionRequest true "评分"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Router /api/faculty/quiz-attempts/{id}/grades [post]
func (c *QuizController) GradeQuestion(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req GradeQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	attempt, err := c.Service.GradeQuestion(ctx.Request.Context(), actor, ctx.Param("id"), req.QuestionID, service.GradeQuestionReq{
		Points:  req.Points,
		Comment: req.Comment,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}
