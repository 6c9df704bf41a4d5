// Package handlers implements the gin handlers of the MultiNLU API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// writeError writes an error body with the given status.
func writeError(c *gin.Context, status int, code errors.ErrorCode, message, detail string) {
	c.JSON(status, nlu.ErrorResponse{
		Code:    code.String(),
		Message: message,
		Detail:  detail,
	})
}

// writeAppError maps err to its HTTP status. Errors that are not an
// *AppError, and internal ones, are masked.
func writeAppError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ae *errors.AppError
	if !errors.As(err, &ae) || ae.Code == errors.ErrCodeInternal {
		writeError(c, http.StatusInternalServerError, errors.ErrCodeInternal, "internal server error", "")
		return
	}
	writeError(c, ae.HTTPStatus(), ae.Code, ae.Message, ae.Detail)
}

//Personal.AI order the ending
