package handlers

import (
	"errors"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/middleware"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/response"
	"gorm.io/gorm"
)

var registerOnce sync.Once

// RegisterErrorTranslator maps domain errors onto HTTP responses.
func RegisterErrorTranslator() {
	registerOnce.Do(func() {
		response.RegisterTranslator(translateError)
	})
}

func translateError(err error) *response.AppError {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		attached   *services.AlreadyAttachedError
		state      *services.InvalidStateError
		persist    *services.PersistenceError
	)
	switch {
	case errors.As(err, &validation):
		return response.NewBadRequest(validation.Error())
	case errors.As(err, &notFound):
		return response.NewNotFound(notFound.Error())
	case errors.As(err, &attached):
		return response.NewConflict(attached.Error())
	case errors.As(err, &state):
		return response.NewConflict(state.Error())
	case errors.As(err, &persist):
		return response.NewServerError(persist.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return response.NewUnauthorized(err.Error())
	case errors.Is(err, services.ErrUserDisabled):
		return response.NewForbidden(err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		return response.NewConflict(err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		return response.NewNotFound("record not found")
	}
	return nil
}

// owner is the scope of every workspace call.
func owner(c *gin.Context) uint {
	return middleware.GetUserID(c)
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// paramEmail reads the :email segment in the stored, lower-cased form.
func paramEmail(c *gin.Context) (string, bool) {
	email, err := models.NormalizeEmail(c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return email, true
}
