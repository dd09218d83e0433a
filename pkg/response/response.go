package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every API call answers with. Code is 0 on
// success and the HTTP status otherwise.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AppError is an error that already knows its HTTP status.
type AppError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func newAppError(status int, msg string) *AppError {
	return &AppError{HTTPStatus: status, Code: status, Message: msg}
}

func NewBadRequest(msg string) *AppError   { return newAppError(http.StatusBadRequest, msg) }
func NewUnauthorized(msg string) *AppError { return newAppError(http.StatusUnauthorized, msg) }
func NewForbidden(msg string) *AppError    { return newAppError(http.StatusForbidden, msg) }
func NewNotFound(msg string) *AppError     { return newAppError(http.StatusNotFound, msg) }
func NewConflict(msg string) *AppError     { return newAppError(http.StatusConflict, msg) }
func NewServerError(msg string) *AppError  { return newAppError(http.StatusInternalServerError, msg) }

// Translator maps a domain error to an AppError, or returns nil when it does
// not recognize err.
type Translator func(err error) *AppError

var translators []Translator

// RegisterTranslator adds t to the chain Resolve consults. Call it during
// startup only.
func RegisterTranslator(t Translator) {
	translators = append(translators, t)
}

// Resolve finds the AppError for err. Unrecognized errors become a 500 that
// carries err's message.
func Resolve(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, t := range translators {
		if mapped := t(err); mapped != nil {
			return mapped
		}
	}
	return NewServerError(err.Error())
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Message: "ok", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Message: "created", Data: data})
}

// Error writes err using the status Resolve picks for it.
func Error(c *gin.Context, err error) {
	fail(c, Resolve(err))
}

func fail(c *gin.Context, e *AppError) {
	c.JSON(e.HTTPStatus, Response{Code: e.Code, Message: e.Message})
}

func BadRequest(c *gin.Context, msg string)   { fail(c, NewBadRequest(msg)) }
func Unauthorized(c *gin.Context, msg string) { fail(c, NewUnauthorized(msg)) }
func Forbidden(c *gin.Context, msg string)    { fail(c, NewForbidden(msg)) }
func NotFound(c *gin.Context, msg string)     { fail(c, NewNotFound(msg)) }
func Conflict(c *gin.Context, msg string)     { fail(c, NewConflict(msg)) }
func ServerError(c *gin.Context, msg string)  { fail(c, NewServerError(msg)) }
