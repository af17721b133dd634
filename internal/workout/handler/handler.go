package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/workout/service"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/logger"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/middleware"
)

const defaultStatsDays = 30

// RegisterRoutes mounts /workouts and /routines on r. mw runs before every
// handler and must leave a principal in the context (see middleware.PrincipalMiddleware).
func RegisterRoutes(r gin.IRouter, svc *service.Service, mw ...gin.HandlerFunc) {
	h := &handler{svc: svc}

	w := r.Group("/workouts", mw...)
	w.GET("/", h.listWorkouts)
	w.POST("/", h.createWorkout)
	w.GET("/stats", h.stats)
	w.POST("/export", h.export)
	w.GET("/:id", h.getWorkout)
	w.PUT("/:id", h.updateWorkout)
	w.DELETE("/:id", h.deleteWorkout)

	rt := r.Group("/routines", mw...)
	rt.GET("/", h.listRoutines)
	rt.POST("/", h.createRoutine)
	rt.GET("/:id", h.getRoutine)
	rt.PUT("/:id", h.updateRoutine)
	rt.DELETE("/:id", h.deleteRoutine)
	rt.POST("/:id/workouts/:workout_id", h.linkWorkout)
	rt.DELETE("/:id/workouts/:workout_id", h.unlinkWorkout)
}

type handler struct {
	svc *service.Service
}

func principalID(c *gin.Context) (int64, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate user"})
		return 0, false
	}
	return p.ID, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto status codes.
func writeError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, service.ErrWorkoutNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Workout not found"})
	case errors.Is(err, service.ErrRoutineNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Routine not found"})
	case errors.Is(err, service.ErrExportUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Errorf("workout handler %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *handler) listWorkouts(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	list, err := h.svc.ListWorkouts(c.Request.Context(), uid, workout.Filter{From: c.Query("from"), To: c.Query("to")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) createWorkout(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	var req service.WorkoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.svc.CreateWorkout(c.Request.Context(), uid, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *handler) getWorkout(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	w, err := h.svc.GetWorkout(c.Request.Context(), uid, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *handler) updateWorkout(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.WorkoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.svc.UpdateWorkout(c.Request.Context(), uid, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *handler) deleteWorkout(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteWorkout(c.Request.Context(), uid, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) stats(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	days := defaultStatsDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
			return
		}
		days = n
	}
	st, err := h.svc.Stats(c.Request.Context(), uid, days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) export(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	res, err := h.svc.Export(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) listRoutines(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	list, err := h.svc.ListRoutines(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) createRoutine(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	var req service.RoutineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.svc.CreateRoutine(c.Request.Context(), uid, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *handler) getRoutine(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.svc.GetRoutine(c.Request.Context(), uid, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handler) updateRoutine(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.RoutineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.svc.UpdateRoutine(c.Request.Context(), uid, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handler) deleteRoutine(c *gin.Context) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteRoutine(c.Request.Context(), uid, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) linkWorkout(c *gin.Context) {
	h.changeLink(c, h.svc.LinkWorkout)
}

func (h *handler) unlinkWorkout(c *gin.Context) {
	h.changeLink(c, h.svc.UnlinkWorkout)
}

func (h *handler) changeLink(c *gin.Context, fn func(ctx context.Context, userID, routineID, workoutID int64) (*workout.Routine, error)) {
	uid, ok := principalID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	wid, ok := pathID(c, "workout_id")
	if !ok {
		return
	}
	r, err := fn(c.Request.Context(), uid, id, wid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
