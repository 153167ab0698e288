package controller

import (
	"ttrac_backend/internal/service"
	"ttrac_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// currentActor 未登录时直接写 401
func currentActor(ctx *gin.Context) (service.Actor, bool) {
	id, role, ok := util.ActorFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: role}, true
}

// pathID 解析路径中的数字 ID，非法时写 400
func pathID(ctx *gin.Context, name string) (uint, bool) {
	id := util.MustParseUint(ctx.Param(name))
	if id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}
