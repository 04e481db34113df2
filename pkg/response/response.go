package response

import (
	"errors"
	"net/http"

	"vas-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// Envelope is the fixed response shape every endpoint returns.
type Envelope struct {
	ResponseCode    string      `json:"responseCode"`
	ResponseMessage string      `json:"responseMessage"`
	ResponseData    interface{} `json:"responseData"`
}

// OK sends a 200 success envelope with data.
func OK(c *gin.Context, data interface{}) {
	WithCode(c, http.StatusOK, apperror.CodeSuccess, "Successful", data)
}

// WithCode sends an envelope with an explicit normalized code and message.
// Vend outcomes (00 / 80 / 08 / 06) travel through here because a vend that
// fails at the provider is still a well-formed HTTP 200 response.
func WithCode(c *gin.Context, httpStatus int, code, message string, data interface{}) {
	if data == nil {
		data = []interface{}{}
	}
	c.JSON(httpStatus, Envelope{
		ResponseCode:    code,
		ResponseMessage: message,
		ResponseData:    data,
	})
}

// Error sends an error envelope. *apperror.AppError maps to its own code and
// HTTP status; anything else becomes a 06 with a 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		WithCode(c, appErr.HTTPStatus, appErr.Code, appErr.Message, []interface{}{})
		return
	}
	WithCode(c, http.StatusInternalServerError, apperror.CodeProcessingError,
		"Unable to process transaction, please try again", []interface{}{})
}
