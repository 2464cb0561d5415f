package scheduler

import (
	"context"
	"testing"
	"time"

	"pharmacy-tracker/utils"
)

func TestParseTimes(t *testing.T) {
	tests := []struct {
		specs   []string
		want    []TimeOfDay
		wantErr bool
	}{
		{[]string{"09:20", "23:20"}, []TimeOfDay{{9, 20}, {23, 20}}, false},
		{[]string{"23:20", "09:20", "11:20"}, []TimeOfDay{{9, 20}, {11, 20}, {23, 20}}, false},
		{[]string{" 09:20 "}, []TimeOfDay{{9, 20}}, false},
		{[]string{"9"}, nil, true},
		{[]string{"24:00"}, nil, true},
		{[]string{"09:60"}, nil, true},
		{[]string{"ab:cd"}, nil, true},
	}

	for _, tt := range tests {
		got, err := ParseTimes(tt.specs)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimes(%v): expected error, got %v", tt.specs, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimes(%v): %v", tt.specs, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseTimes(%v): got %v, want %v", tt.specs, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseTimes(%v)[%d]: got %v, want %v", tt.specs, i, got[i], tt.want[i])
			}
		}
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(nil, func(context.Context) {}, utils.NewLogger()); err == nil {
		t.Error("expected error for empty trigger list")
	}
}

func TestNext(t *testing.T) {
	r, err := New([]string{"09:20", "13:20"}, func(context.Context) {}, utils.NewLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{day.Add(8 * time.Hour), day.Add(9*time.Hour + 20*time.Minute)},
		{day.Add(9*time.Hour + 20*time.Minute), day.Add(13*time.Hour + 20*time.Minute)},
		{day.Add(10 * time.Hour), day.Add(13*time.Hour + 20*time.Minute)},
		// Last trigger has passed; wrap to tomorrow's first.
		{day.Add(23 * time.Hour), day.AddDate(0, 0, 1).Add(9*time.Hour + 20*time.Minute)},
	}

	for _, tt := range tests {
		got := r.Next(tt.now)
		if !got.Equal(tt.want) {
			t.Errorf("Next(%v): got %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	fired := false
	r, err := New([]string{"09:20"}, func(context.Context) { fired = true }, utils.NewLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != context.Canceled {
		t.Errorf("Run after cancel: got %v, want context.Canceled", err)
	}
	if fired {
		t.Error("job must not fire when the context is already cancelled")
	}
}

func TestRunFiresDueTrigger(t *testing.T) {
	fired := make(chan struct{}, 1)
	r, err := New([]string{"09:20"}, func(context.Context) {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, utils.NewLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Pin the clock just before the trigger so the timer fires immediately.
	base := time.Date(2026, 8, 29, 9, 19, 59, 999_000_000, time.UTC)
	r.now = func() time.Time { return base }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not fire")
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run: got %v, want context.Canceled", err)
	}
}
