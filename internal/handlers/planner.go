package handlers

import (
	"errors"
	"net/http"

	"alpha_innotec_planner/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK      = "ok"
	statusDone    = "done"
	statusSkipped = "skipped"

	errGetState   = "failed to load state"
	errPreview    = "failed to build plan"
	errRunFailed  = "run failed"
	errRunPending = "a run is already in progress"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...any) {
	if h.log != nil && err != nil {
		fields := append([]any{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// getState returns the persisted run state.
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// getPlan computes what a run would do right now without touching the device.
func (h *Handler) getPlan(c *gin.Context) {
	plan, err := h.services.Planning.Preview(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errPreview, "preview_failed", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// triggerRun performs one planner run and reports what it did. A run that
// fails part way still returns its result next to the error. The run
// outlives the request: disconnecting does not interrupt the device.
func (h *Handler) triggerRun(c *gin.Context) {
	ctx, cancel := service.DetachRun(c.Request.Context())
	defer cancel()
	res, err := h.services.Planning.Run(ctx)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": errRunPending})
		return
	case err != nil:
		if h.log != nil {
			h.log.Errorw("run_failed", "err", err, "run_id", res.RunID, "subject", c.GetString(subjectKey))
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": errRunFailed, "result": res})
		return
	}

	status := statusDone
	if res.Skipped {
		status = statusSkipped
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "result": res})
}
