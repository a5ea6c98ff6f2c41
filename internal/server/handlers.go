package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonathan/competition-radar/internal/db"
	"github.com/jonathan/competition-radar/internal/pipeline"
	"github.com/jonathan/competition-radar/internal/types"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// AdmittedRequest is the body of POST /events/admitted.
type AdmittedRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1,dive,gt=0"`
}

// handleScrape runs one ingestion synchronously and returns its summary.
// With ?stream=true progress is sent as server-sent events instead.
func (s *Server) handleScrape(c *gin.Context) {
	if stream, _ := strconv.ParseBool(c.Query("stream")); stream {
		s.handleScrapeStream(c)
		return
	}

	summary, err := s.scrape(c.Request.Context(), nil)
	if err != nil {
		body := gin.H{"error": err.Error()}
		if summary != nil {
			body["summary"] = summary
		}
		c.JSON(HTTPStatus(err), body)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type scrapeOutcome struct {
	summary *types.IngestSummary
	err     error
}

// handleScrapeStream emits one "progress" event per finished stage, then a final "complete"
// event carrying the summary or an "error" event.
func (s *Server) handleScrapeStream(c *gin.Context) {
	ctx := c.Request.Context()
	events := make(chan pipeline.ProgressEvent)
	done := make(chan scrapeOutcome, 1)

	go func() {
		summary, err := s.scrape(ctx, func(ev pipeline.ProgressEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		done <- scrapeOutcome{summary: summary, err: err}
	}()

	// A scrape already in progress fails before any stage runs; answer it as plain JSON.
	var first *pipeline.ProgressEvent
	select {
	case ev := <-events:
		first = &ev
	case res := <-done:
		if errors.Is(res.err, errScrapeRunning) {
			s.errorResponse(c, HTTPStatus(res.err), res.err.Error())
			return
		}
		s.startStream(c)
		s.finishStream(c, res)
		return
	}

	s.startStream(c)
	c.SSEvent("progress", first)
	c.Writer.Flush()
	for {
		select {
		case ev := <-events:
			c.SSEvent("progress", ev)
			c.Writer.Flush()
		case res := <-done:
			s.finishStream(c, res)
			return
		}
	}
}

func (s *Server) startStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
}

func (s *Server) finishStream(c *gin.Context, res scrapeOutcome) {
	if res.err != nil {
		c.SSEvent("error", gin.H{"error": res.err.Error(), "status": HTTPStatus(res.err), "summary": res.summary})
	} else {
		c.SSEvent("complete", res.summary)
	}
	c.Writer.Flush()
}

// handleAdmitted publishes the admitted ids for enrichment and returns immediately.
func (s *Server) handleAdmitted(c *gin.Context) {
	var req AdmittedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "body must be {\"ids\": [positive integers]}")
		return
	}
	if s.bus == nil {
		s.errorResponse(c, http.StatusServiceUnavailable, "enrichment is not configured")
		return
	}

	s.bus.Publish(c.Request.Context(), pipeline.AdmittedEvent{IDs: req.IDs})
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(req.IDs)})
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scraping": s.scraping.Load()})
}

// handleListRuns lists recent pipeline runs, optionally filtered by kind and status.
func (s *Server) handleListRuns(c *gin.Context) {
	if s.store == nil {
		s.errorResponse(c, http.StatusServiceUnavailable, "store is not configured")
		return
	}
	limit, ok := s.parseLimit(c)
	if !ok {
		return
	}
	runs, err := s.store.ListRuns(c.Request.Context(), db.RunFilters{
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		s.errorResponse(c, HTTPStatus(err), "failed to list runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// handleListCompetitions lists records, optionally filtered by status and delivery flag.
func (s *Server) handleListCompetitions(c *gin.Context) {
	if s.store == nil {
		s.errorResponse(c, http.StatusServiceUnavailable, "store is not configured")
		return
	}
	limit, ok := s.parseLimit(c)
	if !ok {
		return
	}
	filters := db.CompetitionFilters{
		Status: types.LifecycleStatus(c.Query("status")),
		Limit:  limit,
	}
	if raw := c.Query("delivered"); raw != "" {
		delivered, err := strconv.ParseBool(raw)
		if err != nil {
			s.errorResponse(c, http.StatusBadRequest, "delivered must be true or false")
			return
		}
		filters.Delivered = &delivered
	}

	records, err := s.store.ListCompetitions(c.Request.Context(), filters)
	if err != nil {
		s.logger.Error("list competitions failed", "error", err)
		s.errorResponse(c, HTTPStatus(err), "failed to list competitions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"competitions": records, "count": len(records)})
}

func (s *Server) parseLimit(c *gin.Context) (uint64, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || limit == 0 {
		s.errorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return min(limit, maxListLimit), true
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
