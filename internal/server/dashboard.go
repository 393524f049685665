package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mridungeorge/portfolio/internal/dashboard"
	"github.com/mridungeorge/portfolio/internal/tracking"
)

// stats is the JSON form of the dashboard, with the raw visitor summary.
type stats struct {
	*dashboard.Data
	Visitors *tracking.Summary   `json:"visitors,omitempty"`
	Problems []dashboard.Problem `json:"problems,omitempty"`
}

func (s *Server) dashboardPage(c *gin.Context) {
	data, problems := s.dashboard.Load(c.Request.Context(), s.currentUser(c))
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Data":     data,
		"Problems": problems,
		"Tab":      dashboard.Tab(c.Query("tab")),
		"Tabs":     dashboard.Tabs,
	})
}

func (s *Server) loadStats(c *gin.Context) stats {
	ctx := c.Request.Context()
	data, problems := s.dashboard.Load(ctx, s.currentUser(c))
	out := stats{Data: data, Problems: problems}

	summary, err := tracking.Summarize(ctx, s.opts.Store, s.now())
	if err != nil {
		s.logger.Error("failed to summarize visitors", slog.Any("error", err))
		out.Problems = append(out.Problems, dashboard.Problem{Title: "Error fetching visitors", Message: err.Error()})
	} else {
		out.Visitors = summary
	}
	return out
}

func (s *Server) dashboardStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.loadStats(c))
}

// dashboardExport serves the same stats as a downloadable file.
func (s *Server) dashboardExport(c *gin.Context) {
	out := s.loadStats(c)
	c.Header("Content-Disposition", "attachment; filename=portfolio-stats.json")
	s.logger.Info("stats exported", slog.String("user_id", s.currentUser(c).ID))
	c.IndentedJSON(http.StatusOK, out)
}
