package worker_test

import (
	"context"
	"errors"
	"testing"

	"apod_etl/internal/logger"
	"apod_etl/internal/pipeline"
	"apod_etl/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Discard()
}

type fakeRunner struct {
	dates []string
	err   error
	ctx   context.Context
}

func (f *fakeRunner) Run(ctx context.Context, date string) pipeline.Result {
	f.ctx = ctx
	f.dates = append(f.dates, date)
	if err := ctx.Err(); err != nil {
		return pipeline.Result{State: pipeline.StateFailed, Err: err}
	}
	if f.err != nil {
		return pipeline.Result{State: pipeline.StateFailed, Err: f.err}
	}
	return pipeline.Result{RunID: "1", State: pipeline.StateLoaded}
}

func TestParseTick(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		want    worker.Tick
		wantErr bool
	}{
		{name: "empty body", body: "", want: worker.Tick{}},
		{name: "whitespace", body: " \n", want: worker.Tick{}},
		{name: "empty object", body: `{}`, want: worker.Tick{}},
		{name: "with date", body: `{"date":"2026-02-10"}`, want: worker.Tick{Date: "2026-02-10"}},
		{name: "bad date", body: `{"date":"10/02/2026"}`, wantErr: true},
		{name: "not json", body: `tick`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := worker.ParseTick([]byte(tc.body))
			if tc.wantErr {
				require.ErrorIs(t, err, worker.ErrBadTick)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHandleTask(t *testing.T) {
	r := &fakeRunner{}
	w := worker.NewWorker(r)

	require.NoError(t, w.HandleTask(context.Background(), []byte(`{"date":"2026-02-10"}`)))
	require.NoError(t, w.HandleTask(context.Background(), nil))
	assert.Equal(t, []string{"2026-02-10", ""}, r.dates)
}

func TestHandleTask_PipelineFailure(t *testing.T) {
	boom := errors.New("boom")
	r := &fakeRunner{err: boom}

	err := worker.NewWorker(r).HandleTask(context.Background(), nil)
	require.ErrorIs(t, err, boom)
	assert.Len(t, r.dates, 1)
}

func TestHandleTask_BadTickSkipsPipeline(t *testing.T) {
	r := &fakeRunner{}
	err := worker.NewWorker(r).HandleTask(context.Background(), []byte(`{"date":"yesterday"}`))
	require.ErrorIs(t, err, worker.ErrBadTick)
	assert.Empty(t, r.dates)
}

func TestHandleTask_PassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &fakeRunner{}
	err := worker.NewWorker(r).HandleTask(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Same(t, ctx, r.ctx)
}
