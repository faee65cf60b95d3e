package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

type APIError struct {
	Code    int
	Message string
}

type HandlerFuncWithAuth func(ctx *gin.Context, user *model.User) (any, *APIError)
type HandlerFunc func(ctx *gin.Context) (any, *APIError)

func ResolveEndpointWithAuth(h HandlerFuncWithAuth) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := middleware.GetCurrentUser(ctx)
		if !ok {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		result, apiErr := h(ctx, user)
		if apiErr != nil {
			ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}

		ctx.JSON(http.StatusOK, result)
	}
}

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		if apiErr != nil {
			ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}

		ctx.JSON(http.StatusOK, result)
	}
}

// FromError maps an error returned by the prayer core to a response.
// Unknown errors are logged and reported as 500 without their text.
func FromError(err error) *APIError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, prayer.ErrOutOfRange):
		return &APIError{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, prayer.ErrInstanceNotFound), errors.Is(err, prayer.ErrUserNotFound):
		return &APIError{Code: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, prayer.ErrOutsideWindow), errors.Is(err, prayer.ErrNotEligibleForQada):
		return &APIError{Code: http.StatusUnprocessableEntity, Message: err.Error()}
	case prayer.IsConflict(err):
		return &APIError{Code: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, prayer.ErrInvalidTimeSeries):
		log.Error().Err(err).Msg("prayer time provider returned unusable data")
		return &APIError{Code: http.StatusBadGateway, Message: "prayer times are unavailable"}
	default:
		log.Error().Err(err).Msg("unhandled error")
		return &APIError{Code: http.StatusInternalServerError, Message: "internal error"}
	}
}
