package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"apod_etl/internal/config"
	"apod_etl/internal/db"
	"apod_etl/internal/fetcher"
	"apod_etl/internal/models"
	"apod_etl/internal/pipeline"
	"apod_etl/internal/transform"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	schemaErr error
	insertErr error
	calls     []string
	rows      []models.Record
}

func (s *fakeStore) EnsureSchema(context.Context) error {
	s.calls = append(s.calls, "schema")
	return s.schemaErr
}

func (s *fakeStore) InsertRecord(_ context.Context, rec models.Record) (int64, error) {
	s.calls = append(s.calls, "insert")
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.rows = append(s.rows, rec)
	return int64(len(s.rows)), nil
}

type fakeFetcher struct {
	payload any
	err     error
	calls   int
	date    string
}

func (f *fakeFetcher) Fetch(_ context.Context, date string) (any, error) {
	f.calls++
	f.date = date
	return f.payload, f.err
}

func newPipeline(store pipeline.Store, f pipeline.Fetcher) (*pipeline.Pipeline, *pipeline.Metrics) {
	metrics := pipeline.NewMetrics(prometheus.NewRegistry())
	return pipeline.New(store, f, metrics), metrics
}

func TestPipeline_Success(t *testing.T) {
	store := &fakeStore{}
	f := &fakeFetcher{payload: map[string]any{"title": "T", "date": "2026-02-10"}}
	p, metrics := newPipeline(store, f)

	res := p.Run(context.Background(), "2026-02-10")

	require.True(t, res.Succeeded())
	assert.Equal(t, pipeline.StateLoaded, res.State)
	assert.Equal(t, []string{"schema", "insert"}, store.calls)
	assert.Equal(t, "2026-02-10", f.date)

	loaded, ok := res.Output.(pipeline.Loaded)
	require.True(t, ok)
	assert.Equal(t, int64(1), loaded.ID)
	assert.Equal(t, models.Record{Title: "T", Date: "2026-02-10"}, loaded.Record)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsInserted))
}

func TestPipeline_Failures(t *testing.T) {
	testCases := []struct {
		name        string
		store       *fakeStore
		fetcher     *fakeFetcher
		wantStage   string
		wantErr     error
		wantCalls   []string
		wantFetches int
	}{
		{
			name:        "schema failure aborts before fetch",
			store:       &fakeStore{schemaErr: errors.New("connection refused")},
			fetcher:     &fakeFetcher{payload: map[string]any{}},
			wantStage:   pipeline.StepSchema,
			wantCalls:   []string{"schema"},
			wantFetches: 0,
		},
		{
			name:        "fetch failure aborts before transform",
			store:       &fakeStore{},
			fetcher:     &fakeFetcher{err: &fetcher.StatusError{Code: 500}},
			wantStage:   pipeline.StepFetch,
			wantErr:     fetcher.ErrStatus,
			wantCalls:   []string{"schema"},
			wantFetches: 1,
		},
		{
			name:        "non-object body fails transform",
			store:       &fakeStore{},
			fetcher:     &fakeFetcher{payload: []any{"x"}},
			wantStage:   pipeline.StepTransform,
			wantErr:     transform.ErrNotObject,
			wantCalls:   []string{"schema"},
			wantFetches: 1,
		},
		{
			name:        "load failure",
			store:       &fakeStore{insertErr: errors.New("connection lost")},
			fetcher:     &fakeFetcher{payload: map[string]any{"title": "T"}},
			wantStage:   pipeline.StepLoad,
			wantCalls:   []string{"schema", "insert"},
			wantFetches: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, metrics := newPipeline(tc.store, tc.fetcher)
			res := p.Run(context.Background(), "")

			require.False(t, res.Succeeded())
			assert.Equal(t, pipeline.StateFailed, res.State)
			assert.Equal(t, tc.wantStage, res.Stage)
			if tc.wantErr != nil {
				assert.ErrorIs(t, res.Err, tc.wantErr)
			}
			assert.Equal(t, tc.wantCalls, tc.store.calls)
			assert.Equal(t, tc.wantFetches, tc.fetcher.calls)
			assert.Empty(t, tc.store.rows)
			assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RowsInserted))
		})
	}
}

func runEndToEnd(t *testing.T, body string) []models.Row {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	defer server.Close()

	conns := config.NewProvider(map[string]config.Connection{
		"nasa_api": {ConnType: config.ConnTypeHTTP, Host: server.URL, Extra: map[string]string{"api_key": "k"}},
	}).WithLookup(func(string) (string, bool) { return "", false })

	ctx := context.Background()
	store, err := db.NewSQLite(ctx, filepath.Join(t.TempDir(), "apod.db"))
	require.NoError(t, err)
	defer store.Close()

	p, _ := newPipeline(store, fetcher.NewClient(server.Client(), conns, "nasa_api", ""))
	res := p.Run(ctx, "")
	require.NoError(t, res.Err)
	require.Equal(t, pipeline.StateLoaded, res.State)

	rows, err := store.Latest(ctx, 10)
	require.NoError(t, err)
	return rows
}

func TestEndToEnd_FullResponse(t *testing.T) {
	rows := runEndToEnd(t, `{"title":"T","explanation":"E","url":"http://x","date":"2026-02-10","media_type":"image"}`)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Record{
		Title:       "T",
		Explanation: "E",
		URL:         "http://x",
		Date:        "2026-02-10",
		MediaType:   "image",
	}, rows[0].Record)
}

func TestEndToEnd_PartialResponse(t *testing.T) {
	rows := runEndToEnd(t, `{"title":"T","date":"2026-02-10"}`)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Record{Title: "T", Date: "2026-02-10"}, rows[0].Record)
}
