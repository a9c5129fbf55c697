package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"listing-bot/internal/registry"
	"listing-bot/internal/reminder"
)

// AdminHandler serves the operator HTTP API: health, stats, listing dumps,
// and a manual reminder trigger. Read-only over the registry except for the
// reminder run.
type AdminHandler struct {
	reg      *registry.Registry
	reminder *reminder.Reminder
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(reg *registry.Registry, rem *reminder.Reminder) *AdminHandler {
	return &AdminHandler{reg: reg, reminder: rem}
}

// Router builds the gin engine with all admin routes registered.
func (h *AdminHandler) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", h.Health)
	r.GET("/api/stats", h.GetStats)
	r.GET("/api/listings", h.GetListings)
	r.POST("/api/reminder/run", h.RunReminder)

	return r
}

// Health returns a liveness response
func (h *AdminHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStats returns listing counts per guild
func (h *AdminHandler) GetStats(c *gin.Context) {
	perGuild := h.reg.Stats()

	total := 0
	for _, n := range perGuild {
		total += n
	}

	c.JSON(http.StatusOK, gin.H{
		"guilds":   len(perGuild),
		"listings": gin.H{"total": total, "per_guild": perGuild},
	})
}

// GetListings returns the listings of one guild in insertion order
func (h *AdminHandler) GetListings(c *gin.Context) {
	guildID := c.Query("guild")
	if guildID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guild query parameter is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"guild":    guildID,
		"listings": h.reg.ListingsCopy(guildID),
	})
}

// RunReminder triggers the tour sweep immediately
func (h *AdminHandler) RunReminder(c *gin.Context) {
	if err := h.reminder.RunNow(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
