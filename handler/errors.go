package handler

import (
	"errors"
	"fmt"

	"remindly/usecase"
	"remindly/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// respondError maps a service error onto the HTTP envelope.
func respondError(c *gin.Context, err error) {
	var appErr *usecase.AppError
	if !errors.As(err, &appErr) {
		utils.TrackError("internal", c.FullPath())
		utils.Error("request failed", err,
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")))
		utils.InternalError(c, "Internal server error")
		return
	}

	switch appErr.Kind {
	case usecase.KindValidation:
		utils.ValidationFailed(c, appErr.Field, appErr.Message)
	case usecase.KindNotFound:
		utils.NotFound(c, appErr.Message)
	case usecase.KindPrecondition:
		utils.Conflict(c, appErr.Message)
	case usecase.KindUnauthorized:
		utils.Unauthorized(c, appErr.Message)
	case usecase.KindDelivery:
		utils.TrackError("delivery", c.FullPath())
		utils.BadGateway(c, appErr.Message)
	default:
		utils.InternalError(c, appErr.Message)
	}
}

// respondBindError reports the first failing field of a request body or query.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		utils.ValidationFailed(c, fe.Field(), fmt.Sprintf("invalid %s: failed %s", fe.Field(), fe.Tag()))
		return
	}
	utils.BadRequest(c, "Invalid request body: "+err.Error())
}
