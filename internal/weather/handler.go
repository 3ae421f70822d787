package weather

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Lookup is the slice of Client the handler needs.
type Lookup interface {
	Current(ctx context.Context, city string) (json.RawMessage, error)
}

type Handler struct {
	client Lookup
	logger *slog.Logger
}

func NewHandler(client Lookup, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// Get proxies GET /api/v1/weather?city=... to the upstream provider.
func (h *Handler) Get(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "fail",
			"message": "please provide a city name",
		})
		return
	}

	data, err := h.client.Current(c.Request.Context(), city)
	if err != nil {
		h.logger.Error("weather lookup failed", "city", city, "error", err)
		message := ErrUnavailable.Error()
		if errors.Is(err, ErrInvalidAPIKey) {
			message = ErrInvalidAPIKey.Error()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   data,
	})
}
