package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/elonfeng/clubradar/pkg/engine"
	"github.com/elonfeng/clubradar/pkg/score"
)

const maxRunsLimit = 100

// current returns the served result or answers 503.
func (s *Server) current(c *gin.Context) (*engine.Result, bool) {
	r := s.result.Load()
	if r == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no evaluation available yet"})
		return nil, false
	}
	return r, true
}

func clubID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid club id"})
		return 0, false
	}
	return id, true
}

func list[T any](c *gin.Context, data []T) {
	if data == nil {
		data = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if r := s.result.Load(); r != nil {
		resp["run_id"] = strconv.FormatInt(r.RunID, 10)
		resp["evaluated_at"] = r.FinishedAt
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleClubs(c *gin.Context) {
	r, ok := s.current(c)
	if !ok {
		return
	}
	switch {
	case c.Query("q") != "":
		list(c, r.SearchClubs(c.Query("q")))
	case c.Query("category") != "":
		list(c, r.ClubsByCategory(c.Query("category")))
	case c.Query("activity") != "":
		list(c, r.ClubsByActivity(c.Query("activity")))
	default:
		list(c, r.Clubs())
	}
}

func (s *Server) handleClub(c *gin.Context) {
	r, ok := s.current(c)
	if !ok {
		return
	}
	id, ok := clubID(c)
	if !ok {
		return
	}
	cl, found := r.Club(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "club not found"})
		return
	}
	c.JSON(http.StatusOK, cl)
}

func (s *Server) handleSimilar(c *gin.Context) {
	r, ok := s.current(c)
	if !ok {
		return
	}
	id, ok := clubID(c)
	if !ok {
		return
	}
	similar, err := r.SimilarClubs(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	list(c, similar)
}

func (s *Server) handleGroups(c *gin.Context) {
	r, ok := s.current(c)
	if !ok {
		return
	}
	if c.Query("clusters") == "true" {
		list(c, r.Clusters())
		return
	}
	list(c, r.Groups())
}

func (s *Server) handleRankings(c *gin.Context) {
	r, ok := s.current(c)
	if !ok {
		return
	}

	ranking := r.Rankings()
	model := r.Model
	if name := c.Query("model"); name != "" && name != r.Model.Name {
		m, err := score.NewModel(name, nil)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		model = m
		ranking = r.RankWith(m)
	}

	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(ranking) {
		ranking = ranking[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"model":        model.Name,
		"weights":      model.WeightMap(),
		"generated_at": r.FinishedAt,
		"data":         ranking,
		"count":        len(ranking),
	})
}

func (s *Server) handleGroupRankings(c *gin.Context) {
	r, ok := s.current(c)
	if !ok {
		return
	}
	ranking, err := r.GroupRankings(c.Param("name"))
	if errors.Is(err, engine.ErrGroupNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	list(c, ranking)
}

func (s *Server) handleAnalytics(c *gin.Context) {
	r, ok := s.current(c)
	if !ok {
		return
	}
	id, ok := clubID(c)
	if !ok {
		return
	}
	a, err := r.Analytics(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleDashboard(c *gin.Context) {
	r, ok := s.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r.Dashboard())
}

func (s *Server) handleStatistics(c *gin.Context) {
	r, ok := s.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r.Statistics())
}

func (s *Server) handleRuns(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is not enabled"})
		return
	}

	limit := 20
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = min(v, maxRunsLimit)
	}

	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	list(c, runs)
}
