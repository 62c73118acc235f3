package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardledger/mtg-tracker/internal/models"
	"github.com/cardledger/mtg-tracker/internal/services"
	"github.com/cardledger/mtg-tracker/internal/state"
)

type StateHandler struct {
	provider *DataProvider
}

func NewStateHandler(provider *DataProvider) *StateHandler {
	return &StateHandler{provider: provider}
}

// GetState returns the rolling price state, optionally filtered to one date
// with ?date=YYYY-MM-DD.
func (h *StateHandler) GetState(c *gin.Context) {
	rows, _, err := h.provider.StateRows(c.Request.Context())
	if err != nil {
		if errors.Is(err, state.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no state snapshot yet, run seed first"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if date := c.Query("date"); date != "" {
		var filtered []models.PriceRow
		for _, row := range rows {
			if row.Date == date {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	dates := models.DistinctDates(rows)
	asOf := ""
	if len(dates) > 0 {
		asOf = dates[len(dates)-1]
	}
	c.JSON(http.StatusOK, gin.H{
		"as_of_date":     asOf,
		"distinct_dates": dates,
		"row_count":      len(rows),
		"rows":           rows,
	})
}

// GetLatestPrices returns each key's most recent observation.
func (h *StateHandler) GetLatestPrices(c *gin.Context) {
	rows, _, err := h.provider.StateRows(c.Request.Context())
	if err != nil {
		if errors.Is(err, state.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no state snapshot yet, run seed first"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	latest := services.LatestPrices(rows)
	type latestRow struct {
		ScryfallID string        `json:"scryfall_id"`
		Finish     models.Finish `json:"finish"`
		Date       string        `json:"date"`
		Price      float64       `json:"price"`
	}
	out := make([]latestRow, 0, len(latest))
	for key, point := range latest {
		out = append(out, latestRow{
			ScryfallID: key.ScryfallID,
			Finish:     key.Finish,
			Date:       point.Date,
			Price:      point.Price,
		})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "prices": out})
}

// GetRunMeta returns the meta document from the last persisted run.
func (h *StateHandler) GetRunMeta(c *gin.Context) {
	_, meta, err := h.provider.StateRows(c.Request.Context())
	if err != nil {
		if errors.Is(err, state.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no state snapshot yet, run seed first"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if meta == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run meta recorded"})
		return
	}
	c.JSON(http.StatusOK, meta)
}
