package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/competition-radar/internal/collector"
	"github.com/jonathan/competition-radar/internal/db"
	"github.com/jonathan/competition-radar/internal/types"
)

// HTTPStatus returns the appropriate HTTP status code for a pipeline error
func HTTPStatus(err error) int {
	var persistence *db.PersistenceError
	switch {
	case errors.Is(err, errScrapeRunning):
		return http.StatusConflict
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, collector.ErrAllSourcesFailed):
		return http.StatusBadGateway
	case errors.As(err, &persistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
