package controller

import (
	"context"
	"errors"
	"net/http"

	"desorientado_backend/internal/progress"
	"desorientado_backend/internal/service"
	"desorientado_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto the response envelope. Anything
// unknown is logged and reported as a 500.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, progress.ErrInvalidLesson),
		errors.Is(err, progress.ErrInvalidQuiz),
		errors.Is(err, progress.ErrInvalidDate):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrLessonNotFound), errors.Is(err, util.ErrUserNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrEmailRegistered):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, err.Error())
	case errors.Is(err, util.ErrUserDisabled), errors.Is(err, util.ErrPermissionDenied):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		util.Error(ctx, http.StatusServiceUnavailable, "progress is temporarily unavailable, try again")
	case errors.Is(err, util.ErrCodeRunnerFailed):
		util.Error(ctx, http.StatusBadGateway, err.Error())
	case errors.Is(err, util.ErrCodeRunnerDown):
		util.Error(ctx, http.StatusServiceUnavailable, util.ErrCodeRunnerDown.Error())
	case errors.Is(err, context.Canceled):
		// client went away
		ctx.Status(499)
	default:
		util.LogInternalError(ctx, err)
	}
}

// currentUser returns the authenticated user's id, answering 401 when the
// request carries none.
func currentUser(ctx *gin.Context) (uint, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return user.UserID, true
}
