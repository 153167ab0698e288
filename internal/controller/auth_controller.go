package controller

import (
	"ttrac_backend/internal/service"
	"ttrac_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// LoginRequest swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register godoc
// @Summary 注册新用户
// @Description 密码至少 8 位；角色可选 student 或 faculty
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.RegisterReq true "用户注册信息"
// @Success 201 {object} util.Response{data=model.Profile} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	profile, err := c.AuthService.Register(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, profile)
}

// Login godoc
// @Summary 用户登录
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "登录信息"
// @Success 200 {object} util.Response "token 与用户信息"
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, profile, err := c.AuthService.Login(req.Email, req.Password)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"token": token, "user": profile})
}

// Profile godoc
// @Summary 当前用户信息
// @Description 用户已被删除时 data 为空
// @Tags 认证
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.Profile}
// @Router /api/profile [get]
func (c *AuthController) Profile(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	profile, err := c.AuthService.Profile(actor.ID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}
