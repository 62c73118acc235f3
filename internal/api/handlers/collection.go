package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cardledger/mtg-tracker/internal/services"
	"github.com/cardledger/mtg-tracker/internal/state"
)

const (
	defaultMoversWindow = 7
	defaultMoversLimit  = 20
)

type CollectionHandler struct {
	provider *DataProvider
}

func NewCollectionHandler(provider *DataProvider) *CollectionHandler {
	return &CollectionHandler{provider: provider}
}

// GetValuation prices the collection at the latest state observations.
func (h *CollectionHandler) GetValuation(c *gin.Context) {
	collection, err := h.provider.Collection()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	rows, _, err := h.provider.StateRows(c.Request.Context())
	if err != nil {
		if errors.Is(err, state.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no state snapshot yet, run seed first"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, services.BuildValuation(collection, rows))
}

// GetMovers lists the largest percentage movers over ?window= days
// (default 7), capped at ?limit= rows (default 20).
func (h *CollectionHandler) GetMovers(c *gin.Context) {
	window, err := positiveIntQuery(c, "window", defaultMoversWindow)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := positiveIntQuery(c, "limit", defaultMoversLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, _, err := h.provider.StateRows(c.Request.Context())
	if err != nil {
		if errors.Is(err, state.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no state snapshot yet, run seed first"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	movers := services.TopMovers(rows, window, limit)
	c.JSON(http.StatusOK, gin.H{
		"window_days": window,
		"count":       len(movers),
		"movers":      movers,
	})
}

func positiveIntQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return value, nil
}
