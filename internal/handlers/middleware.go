package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// subjectKey is where the bearer middleware stores the token subject.
const subjectKey = "subject"

func (h *Handler) bearerMiddleware(c *gin.Context) {
	token, msg := bearerToken(c.GetHeader("Authorization"))
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}

	subject, err := h.services.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(subjectKey, subject)
	c.Next()
}

// bearerToken extracts the token of an RFC 6750 header. The scheme is
// case-insensitive. A non-empty msg is the client-facing rejection.
func bearerToken(header string) (token, msg string) {
	if header == "" {
		return "", "missing Authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "invalid Authorization header format"
	}
	return token, ""
}
