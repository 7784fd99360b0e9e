package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medisync/clinic-queue/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps an application error to its HTTP status.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.IsCode(err, errors.ErrValidation):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case errors.IsCode(err, errors.ErrNotFound):
		statusCode = http.StatusNotFound
		message = err.Error()
	case errors.IsCode(err, errors.ErrInvalidState):
		statusCode = http.StatusConflict
		message = err.Error()
	case errors.IsCode(err, errors.ErrUnavailable):
		statusCode = http.StatusServiceUnavailable
		message = err.Error()
	}

	c.JSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    statusCode,
			Message: message,
		},
	})
}
