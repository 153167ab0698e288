package util

import (
	"errors"
	"net/http"
	"ttrac_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	InternalServerError(c)
}

var (
	notFoundErrors = []error{
		ErrUserNotFound, ErrCourseNotFound, ErrEnrollmentNotFound, ErrAssignmentNotFound,
		ErrSubmissionNotFound, ErrQuizNotFound, ErrQuestionNotFound, ErrAttemptNotFound,
		ErrMaterialNotFound, ErrNotificationNotFound,
	}
	forbiddenErrors = []error{ErrPermissionDenied, ErrNotCourseOwner, ErrNotEnrolled, ErrQuizNotPublished}
	conflictErrors  = []error{ErrEmailRegistered, ErrEnrollmentExists, ErrInvalidTransition, ErrAttemptSubmitted, ErrAlreadyGraded}
	badInputErrors  = []error{ErrPasswordTooShort, ErrQuestionAutoGraded, ErrAttemptInProgress}
)

func matchAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// HandleError 将服务层的哨兵错误映射为 HTTP 状态码，未知错误记录日志并返回 500
func HandleError(c *gin.Context, err error) {
	var verr ValidationErrors
	switch {
	case errors.As(err, &verr):
		Error(c, http.StatusBadRequest, verr.Error())
	case matchAny(err, notFoundErrors):
		Error(c, http.StatusNotFound, err.Error())
	case matchAny(err, forbiddenErrors):
		Error(c, http.StatusForbidden, err.Error())
	case matchAny(err, conflictErrors):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		Error(c, http.StatusUnauthorized, err.Error())
	case matchAny(err, badInputErrors):
		Error(c, http.StatusBadRequest, err.Error())
	default:
		LogInternalError(c, err)
	}
}
