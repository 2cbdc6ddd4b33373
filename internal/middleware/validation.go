package middleware

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/vaxportal/internal/app/models/dto"
)

// BindJSON decodes and validates the request body into obj. Unknown fields
// are rejected. On failure it writes a 400 response and returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var errorDetail *dto.ErrorDetail
		if errors.Is(err, io.EOF) {
			errorDetail = dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Request body is required")
		} else {
			errorDetail = dto.HandleValidationError(err)
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return false
	}
	return true
}
