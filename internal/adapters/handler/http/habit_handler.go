package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/metrics"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/services"
)

type HabitHandler struct {
	svc *services.HabitService
}

func NewHabitHandler(svc *services.HabitService) *HabitHandler {
	return &HabitHandler{
		svc: svc,
	}
}

type createHabitRequest struct {
	Place          string     `json:"place" binding:"required,max=200"`
	Action         string     `json:"action" binding:"required,max=200"`
	IsPleasant     bool       `json:"is_pleasant"`
	Time           *time.Time `json:"time"`
	EndTime        *time.Time `json:"end_time"`
	Frequency      *string    `json:"frequency"`
	Reward         *string    `json:"reward" binding:"omitempty,max=200"`
	RelatedHabitID *string    `json:"related_habit_id"`
	DaysOfWeek     []string   `json:"days_of_week" binding:"omitempty,dive,weekday"`
	TimeNeeded     int        `json:"time_needed" binding:"min=0"`
	IsPublic       bool       `json:"is_public"`
}

func (r createHabitRequest) draft() domain.HabitDraft {
	return domain.HabitDraft{
		Place:             r.Place,
		Action:            r.Action,
		IsPleasant:        r.IsPleasant,
		Time:              r.Time,
		EndTime:           r.EndTime,
		FrequencyTemplate: r.Frequency,
		Reward:            r.Reward,
		RelatedHabitID:    r.RelatedHabitID,
		DaysOfWeek:        r.DaysOfWeek,
		TimeNeeded:        r.TimeNeeded,
		IsPublic:          r.IsPublic,
	}
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/:id", h.Get)
		habits.PATCH("/:id", h.Update)
		habits.PUT("/:id", h.Update)
		habits.DELETE("/:id", h.Delete)
	}
	router.GET("/frequencies", h.Frequencies)
}

// Create godoc
// @Summary  Create a habit
// @Tags     habits
// @Accept   json
// @Produce  json
// @Param    habit body createHabitRequest true "Habit"
// @Success  201 {object} domain.Habit
// @Failure  400 {object} map[string]string
// @Security BearerAuth
// @Router   /habits [post]
func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, err := h.svc.Create(c.Request.Context(), userID, req.draft())
	metrics.TrackHabitOperation("create", err)
	if err != nil {
		writeHabitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, habit)
}

// List godoc
// @Summary  List own habits
// @Tags     habits
// @Produce  json
// @Param    page      query int false "Page number"
// @Param    page_size query int false "Page size (max 100)"
// @Success  200 {object} services.HabitPage
// @Security BearerAuth
// @Router   /habits [get]
func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	number, err := queryInt(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a number"})
		return
	}
	size, err := queryInt(c, "page_size", domain.DefaultPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page_size must be a number"})
		return
	}

	page, err := h.svc.ListByUserID(c.Request.Context(), userID, domain.NewPage(number, size))
	if err != nil {
		writeHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// Get godoc
// @Summary  Retrieve an own habit
// @Tags     habits
// @Produce  json
// @Param    id path string true "Habit ID"
// @Success  200 {object} domain.Habit
// @Failure  404 {object} map[string]string
// @Security BearerAuth
// @Router   /habits/{id} [get]
func (h *HabitHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	habit, err := h.svc.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Update godoc
// @Summary  Partially update an own habit
// @Description Only the supplied keys change. An explicit null clears an optional field.
// @Tags     habits
// @Accept   json
// @Produce  json
// @Param    id    path string            true "Habit ID"
// @Param    patch body domain.HabitPatch true "Changed fields"
// @Success  200 {object} domain.Habit
// @Failure  400 {object} map[string]string
// @Failure  404 {object} map[string]string
// @Security BearerAuth
// @Router   /habits/{id} [patch]
func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var patch domain.HabitPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, err := h.svc.Update(c.Request.Context(), services.UpdateHabitInput{
		ID:     c.Param("id"),
		UserID: userID,
		Patch:  patch,
	})
	metrics.TrackHabitOperation("update", err)
	if err != nil {
		writeHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Delete godoc
// @Summary  Delete an own habit and its reminder
// @Tags     habits
// @Param    id path string true "Habit ID"
// @Success  204
// @Failure  404 {object} map[string]string
// @Failure  409 {object} map[string]string
// @Security BearerAuth
// @Router   /habits/{id} [delete]
func (h *HabitHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID)
	metrics.TrackHabitOperation("delete", err)
	if err != nil {
		writeHabitError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Frequencies godoc
// @Summary  Supported frequency templates
// @Tags     habits
// @Produce  json
// @Success  200 {array} domain.FrequencyChoice
// @Router   /frequencies [get]
func (h *HabitHandler) Frequencies(c *gin.Context) {
	c.JSON(http.StatusOK, domain.FrequencyChoices)
}
