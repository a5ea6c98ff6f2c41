package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/competition-radar/internal/sources"
	"github.com/jonathan/competition-radar/internal/types"
)

type fakeAdapter struct {
	id     string
	origin types.Origin
	res    *sources.Result
	err    error
	delay  time.Duration
	panics bool
}

func (f *fakeAdapter) ID() string           { return f.id }
func (f *fakeAdapter) Origin() types.Origin { return f.origin }

func (f *fakeAdapter) Fetch(ctx context.Context) (*sources.Result, error) {
	if f.panics {
		panic("selector exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.res, f.err
}

func items(origin types.Origin, urls ...string) []types.CandidateItem {
	out := make([]types.CandidateItem, 0, len(urls))
	for _, u := range urls {
		out = append(out, types.CandidateItem{SourceURL: u, Origin: origin})
	}
	return out
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCollect_AggregatesAndIsolatesFailures(t *testing.T) {
	adapters := []sources.Adapter{
		&fakeAdapter{id: "infolomba", origin: types.OriginInfoLomba, delay: 20 * time.Millisecond,
			res: &sources.Result{Items: items(types.OriginInfoLomba, "a1", "a2")}},
		&fakeAdapter{id: "lombaku", err: &sources.SourceFetchError{Source: "lombaku", Message: "listing fetch failed"}},
		&fakeAdapter{id: "instagram", origin: types.OriginInstagram,
			res: &sources.Result{
				Items:    []types.CandidateItem{{SourceURL: "i1"}},
				Warnings: []error{errors.New("account x rate limited")},
			}},
	}

	col, err := New(adapters, quiet()).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, col.Total)
	assert.Equal(t, []string{"a1", "a2", "i1"}, sourceURLs(col.Items), "configuration order, stable within a source")
	assert.Equal(t, types.OriginInstagram, col.Items[2].Origin, "untagged items get the adapter origin")

	require.Len(t, col.Errors, 2)
	assert.Equal(t, "lombaku", col.Errors[0].Source)
	assert.Equal(t, "instagram", col.Errors[1].Source)
}

func TestCollect_AllSourcesFailed(t *testing.T) {
	adapters := []sources.Adapter{
		&fakeAdapter{id: "a", err: errors.New("down")},
		&fakeAdapter{id: "b", panics: true},
	}

	col, err := New(adapters, quiet()).Collect(context.Background())
	require.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.Zero(t, col.Total)
	require.Len(t, col.Errors, 2)
	assert.Contains(t, col.Errors[1].Message, "selector exploded")
}

func TestCollect_EmptySuccessIsNotFailure(t *testing.T) {
	adapters := []sources.Adapter{&fakeAdapter{id: "a", res: &sources.Result{}}}

	col, err := New(adapters, quiet()).Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, col.Total)
	assert.Empty(t, col.Errors)
}

func sourceURLs(items []types.CandidateItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.SourceURL
	}
	return out
}
