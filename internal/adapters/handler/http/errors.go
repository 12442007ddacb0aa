package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

// writeHabitError maps service errors onto status codes. Rejections carry
// their reason verbatim; anything unexpected is a 500.
func writeHabitError(c *gin.Context, err error) {
	var formatErr *domain.ScheduleFormatError

	switch {
	case domain.IsRejection(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &formatErr):
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "frequency could not be compiled into a schedule"})
	case errors.Is(err, domain.ErrHabitNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
	case errors.Is(err, domain.ErrHabitReferenced):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrHabitInvalidUserID):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user context missing"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
