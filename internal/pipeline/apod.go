package pipeline

import (
	"context"
	"fmt"

	"apod_etl/internal/models"
	"apod_etl/internal/transform"
)

const (
	StepSchema    = "create_table"
	StepFetch     = "extract_apod"
	StepTransform = "transform_apod_data"
	StepLoad      = "load_data"
)

// Fetcher загружает сырой ответ APOD.
type Fetcher interface {
	Fetch(ctx context.Context, date string) (any, error)
}

// Store — часть db.Store, нужная пайплайну.
type Store interface {
	EnsureSchema(ctx context.Context) error
	InsertRecord(ctx context.Context, rec models.Record) (int64, error)
}

// Loaded — выход шага загрузки.
type Loaded struct {
	ID     int64
	Record models.Record
}

// Pipeline связывает шаги APOD: создание таблицы, загрузка, преобразование, запись.
type Pipeline struct {
	store   Store
	fetcher Fetcher
	runner  *Runner
	metrics *Metrics
}

func New(store Store, fetcher Fetcher, metrics *Metrics) *Pipeline {
	runner := NewRunner(metrics)
	return &Pipeline{
		store:   store,
		fetcher: fetcher,
		runner:  runner,
		metrics: runner.metrics,
	}
}

// Run выполняет один запуск. Пустой date означает запись за сегодня.
func (p *Pipeline) Run(ctx context.Context, date string) Result {
	return p.runner.Run(ctx, p.Steps(date))
}

// Steps возвращает шаги запуска в порядке выполнения.
func (p *Pipeline) Steps(date string) []Step {
	return []Step{
		{
			Name: StepSchema,
			Done: StateSchemaReady,
			Run: func(ctx context.Context, _ any) (any, error) {
				return nil, p.store.EnsureSchema(ctx)
			},
		},
		{
			Name: StepFetch,
			Done: StateFetched,
			Run: func(ctx context.Context, _ any) (any, error) {
				return p.fetcher.Fetch(ctx, date)
			},
		},
		{
			Name: StepTransform,
			Done: StateTransformed,
			Run: func(_ context.Context, in any) (any, error) {
				return transform.Record(in)
			},
		},
		{
			Name: StepLoad,
			Done: StateLoaded,
			Run: func(ctx context.Context, in any) (any, error) {
				rec, ok := in.(models.Record)
				if !ok {
					return nil, fmt.Errorf("load: unexpected input %T", in)
				}
				id, err := p.store.InsertRecord(ctx, rec)
				if err != nil {
					return nil, err
				}
				p.metrics.RowsInserted.Inc()
				return Loaded{ID: id, Record: rec}, nil
			},
		},
	}
}
