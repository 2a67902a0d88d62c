package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"apod_etl/internal/logger"
	"apod_etl/internal/pipeline"
)

var ErrBadTick = errors.New("invalid tick message")

// Tick — сообщение триггера. Пустой Date означает запись за сегодня.
type Tick struct {
	Date string `json:"date,omitempty"`
}

// ParseTick разбирает тело сообщения; пустое тело допустимо.
func ParseTick(body []byte) (Tick, error) {
	var tick Tick
	if len(bytes.TrimSpace(body)) == 0 {
		return tick, nil
	}
	if err := json.Unmarshal(body, &tick); err != nil {
		return tick, fmt.Errorf("%w: %v", ErrBadTick, err)
	}
	if err := ValidateDate(tick.Date); err != nil {
		return tick, err
	}
	return tick, nil
}

// ValidateDate проверяет формат YYYY-MM-DD; пустая строка допустима.
func ValidateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrBadTick, date)
	}
	return nil
}

// Runner выполняет один запуск пайплайна.
type Runner interface {
	Run(ctx context.Context, date string) pipeline.Result
}

type Worker struct {
	pipeline Runner
}

func NewWorker(p Runner) *Worker {
	return &Worker{pipeline: p}
}

// HandleTask обрабатывает одно сообщение триггера: ровно один запуск пайплайна.
// Отмена ctx прерывает текущий запуск.
func (w *Worker) HandleTask(ctx context.Context, body []byte) error {
	tick, err := ParseTick(body)
	if err != nil {
		logger.Log.WithError(err).Warn("Rejecting tick")
		return err
	}

	log := logger.Log.WithField("date", tick.Date)
	log.Info("Processing tick")

	res := w.pipeline.Run(ctx, tick.Date)
	if res.Err != nil {
		return res.Err
	}

	log.WithField("run_id", res.RunID).Infof("Tick processed, state %s", res.State)
	return nil
}
