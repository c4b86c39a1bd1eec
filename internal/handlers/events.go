package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"alpha_innotec_planner/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid   = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid     = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRangeInverted = "'from' must be <= 'to'"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// getEvents lists the run log. Query: from, to (RFC3339, 'YYYY-MM-DD HH:MM:SS'
// or 'YYYY-MM-DD'; a date-only 'to' covers the whole day), type and run_id.
func (h *Handler) getEvents(c *gin.Context) {
	from, to, msg := parseRange(c.Query("from"), c.Query("to"))
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	filter := service.LogFilter{
		From:  from,
		To:    to,
		Type:  strings.ToUpper(strings.TrimSpace(c.Query("type"))),
		RunID: strings.TrimSpace(c.Query("run_id")),
	}
	events, err := h.services.EventLog.List(c.Request.Context(), filter)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load events", "events_list_failed", err,
			"from", from, "to", to, "type", filter.Type, "run_id", filter.RunID)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// parseRange reads the optional bounds. msg is non-empty for a bad request.
func parseRange(fromQ, toQ string) (from, to time.Time, msg string) {
	var err error
	if fromQ != "" {
		if from, err = parseQueryTime(fromQ); err != nil {
			return from, to, errFromInvalid
		}
	}
	if toQ != "" {
		if to, err = parseQueryTime(toQ); err != nil {
			return from, to, errToInvalid
		}
		if isDateOnly(toQ) {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from, to, errRangeInverted
	}
	return from, to, ""
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2024-03-10T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
