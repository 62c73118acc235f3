package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

type ReportsHandler struct {
	provider *DataProvider
}

func NewReportsHandler(provider *DataProvider) *ReportsHandler {
	return &ReportsHandler{provider: provider}
}

type reportEntry struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// ListReports lists the generated report files, newest first.
func (h *ReportsHandler) ListReports(c *gin.Context) {
	entries, err := os.ReadDir(h.provider.ReportsDir())
	if os.IsNotExist(err) {
		c.JSON(http.StatusOK, gin.H{"reports": []reportEntry{}})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var reports []reportEntry
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "spikes_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, reportEntry{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Name > reports[j].Name })

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetReport serves one report file by name. Only bare file names are
// accepted; anything path-like is rejected.
func (h *ReportsHandler) GetReport(c *gin.Context) {
	name := c.Param("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report name"})
		return
	}

	path := filepath.Join(h.provider.ReportsDir(), name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.File(path)
}
