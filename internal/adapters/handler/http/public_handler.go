package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/services"
)

// PublicHandler serves the habits other users chose to share. It needs no
// authentication.
type PublicHandler struct {
	svc *services.HabitService
}

func NewPublicHandler(svc *services.HabitService) *PublicHandler {
	return &PublicHandler{svc: svc}
}

func (h *PublicHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/public-habits", h.List)
}

// List godoc
// @Summary  List public habits
// @Tags     public
// @Produce  json
// @Success  200 {array} domain.PublicHabit
// @Router   /public-habits [get]
func (h *PublicHandler) List(c *gin.Context) {
	habits, err := h.svc.ListPublic(c.Request.Context())
	if err != nil {
		writeHabitError(c, err)
		return
	}
	c.JSON(http.StatusOK, habits)
}
