package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

// professorID returns the authenticated professor or writes a 401 and returns false.
func professorID(c *gin.Context) (string, bool) {
	id := middleware.ProfessorID(c)
	if id == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func withMeta(c *gin.Context, status int, data interface{}) {
	response.JSON(c, status, data, nil, middleware.ResponseMeta(c))
}
