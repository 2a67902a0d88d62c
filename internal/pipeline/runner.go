package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"apod_etl/internal/logger"
)

// State — состояние запуска пайплайна.
type State string

const (
	StatePending     State = "PENDING"
	StateSchemaReady State = "SCHEMA_READY"
	StateFetched     State = "FETCHED"
	StateTransformed State = "TRANSFORMED"
	StateLoaded      State = "LOADED"
	StateFailed      State = "FAILED"
)

// Step — один шаг пайплайна. Run получает результат предыдущего шага;
// при успехе запуск переходит в состояние Done.
type Step struct {
	Name string
	Done State
	Run  func(ctx context.Context, in any) (any, error)
}

// StepError сообщает, на каком шаге остановился запуск.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Result описывает завершённый запуск.
type Result struct {
	RunID    string
	State    State
	Stage    string
	Output   any
	Err      error
	Started  time.Time
	Finished time.Time
}

func (r Result) Succeeded() bool {
	return r.Err == nil && r.State != StateFailed
}

func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Runner выполняет шаги строго последовательно и останавливается на первой ошибке.
// Повторов нет: повторный запуск — забота внешнего планировщика.
type Runner struct {
	metrics *Metrics
	now     func() time.Time
}

func NewRunner(metrics *Metrics) *Runner {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Runner{metrics: metrics, now: time.Now}
}

func newRunID(t time.Time) string {
	return fmt.Sprintf("%d-%d", t.UnixNano(), rand.Intn(10000))
}

// Run выполняет steps по порядку. Выход каждого шага передаётся на вход следующему.
func (r *Runner) Run(ctx context.Context, steps []Step) Result {
	started := r.now()
	res := Result{
		RunID:   newRunID(started),
		State:   StatePending,
		Started: started,
	}

	log := logger.Log.WithField("run_id", res.RunID)
	log.Info("Starting pipeline run")

	var payload any
	for _, step := range steps {
		stepLog := log.WithField("step", step.Name)
		stepStart := r.now()

		out, err := step.Run(ctx, payload)
		elapsed := r.now().Sub(stepStart)
		r.metrics.StepDuration.WithLabelValues(step.Name).Observe(elapsed.Seconds())

		if err != nil {
			res.State = StateFailed
			res.Stage = step.Name
			res.Err = &StepError{Step: step.Name, Err: err}
			res.Finished = r.now()
			r.metrics.Runs.WithLabelValues(resultFailed).Inc()

			stepLog.WithError(err).WithFields(logger.Fields{
				"state":    res.State,
				"duration": elapsed.String(),
			}).Error("Pipeline step failed")
			return res
		}

		res.State = step.Done
		payload = out
		stepLog.WithFields(logger.Fields{
			"state":    res.State,
			"duration": elapsed.String(),
		}).Debug("Pipeline step completed")
	}

	res.Output = payload
	res.Finished = r.now()
	r.metrics.Runs.WithLabelValues(resultSuccess).Inc()
	r.metrics.LastSuccess.Set(float64(res.Finished.Unix()))

	log.WithFields(logger.Fields{
		"state":    res.State,
		"duration": res.Duration().String(),
	}).Info("Pipeline run completed")
	return res
}
