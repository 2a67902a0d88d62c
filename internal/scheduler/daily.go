package scheduler

import (
	"context"
	"time"

	"apod_etl/internal/logger"
)

// Daily вызывает run раз в сутки в заданное время. Пропущенные дни
// не догоняются: следующий запуск считается от текущего момента.
type Daily struct {
	hour       int
	minute     int
	loc        *time.Location
	runOnStart bool
	run        func(ctx context.Context)

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

func NewDaily(hour, minute int, loc *time.Location, runOnStart bool, run func(ctx context.Context)) *Daily {
	if loc == nil {
		loc = time.UTC
	}
	return &Daily{
		hour:       hour,
		minute:     minute,
		loc:        loc,
		runOnStart: runOnStart,
		run:        run,
		now:        time.Now,
		after:      time.After,
	}
}

// Next возвращает ближайшее время запуска строго после t.
func (d *Daily) Next(t time.Time) time.Time {
	local := t.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return next
}

// Start блокируется до отмены ctx.
func (d *Daily) Start(ctx context.Context) {
	log := logger.Log.WithFields(logger.Fields{
		"service":  "scheduler",
		"timezone": d.loc.String(),
	})

	if d.runOnStart {
		log.Info("Running pipeline on start")
		d.run(ctx)
	}

	for {
		next := d.Next(d.now())
		wait := next.Sub(d.now())
		log.WithField("next_run", next.Format(time.RFC3339)).Info("Waiting for next tick")

		select {
		case <-d.after(wait):
			log.Info("Starting scheduled run")
			d.run(ctx)

		case <-ctx.Done():
			log.Info("Stopping scheduler by context")
			return
		}
	}
}

// Go запускает Start в отдельной горутине. Возвращённый канал закрывается,
// когда Start завершился и текущий запуск run отработал.
func (d *Daily) Go(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Start(ctx)
	}()
	return done
}
