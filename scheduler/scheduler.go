package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"pharmacy-tracker/utils"
)

// TimeOfDay is one wall-clock trigger.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimes parses "HH:MM" trigger specs and returns them sorted.
func ParseTimes(specs []string) ([]TimeOfDay, error) {
	triggers := make([]TimeOfDay, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(strings.TrimSpace(spec), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("trigger %q: want HH:MM", spec)
		}
		h, err := strconv.Atoi(parts[0])
		if err != nil || h < 0 || h > 23 {
			return nil, fmt.Errorf("trigger %q: bad hour", spec)
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil || m < 0 || m > 59 {
			return nil, fmt.Errorf("trigger %q: bad minute", spec)
		}
		triggers = append(triggers, TimeOfDay{Hour: h, Minute: m})
	}
	sort.Slice(triggers, func(i, j int) bool {
		if triggers[i].Hour != triggers[j].Hour {
			return triggers[i].Hour < triggers[j].Hour
		}
		return triggers[i].Minute < triggers[j].Minute
	})
	return triggers, nil
}

// Runner fires a job at fixed wall-clock times each day. It sleeps until the
// next trigger instead of polling, and stops cleanly when its context is
// cancelled.
type Runner struct {
	triggers []TimeOfDay
	job      func(context.Context)
	logger   *utils.Logger
	now      func() time.Time
}

// New creates a Runner for the given "HH:MM" trigger times.
func New(specs []string, job func(context.Context), logger *utils.Logger) (*Runner, error) {
	triggers, err := ParseTimes(specs)
	if err != nil {
		return nil, err
	}
	if len(triggers) == 0 {
		return nil, fmt.Errorf("no trigger times configured")
	}
	return &Runner{triggers: triggers, job: job, logger: logger, now: time.Now}, nil
}

// Next returns the earliest trigger instant strictly after now.
func (r *Runner) Next(now time.Time) time.Time {
	for _, t := range r.triggers {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
		if candidate.After(now) {
			return candidate
		}
	}
	// Every trigger today has passed; wrap to the first one tomorrow.
	first := r.triggers[0]
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), first.Hour, first.Minute, 0, 0, now.Location())
}

// Run blocks, firing the job at each trigger, until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("[scheduler] running with %d daily triggers, first %s",
		len(r.triggers), r.triggers[0])

	for {
		next := r.Next(r.now())
		r.logger.Info("[scheduler] next run at %s", next.Format("2006-01-02 15:04"))

		timer := time.NewTimer(next.Sub(r.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("[scheduler] stopped: %v", ctx.Err())
			return ctx.Err()
		case <-timer.C:
			r.logger.Info("[scheduler] trigger %s fired", next.Format("15:04"))
			r.job(ctx)
		}
	}
}
