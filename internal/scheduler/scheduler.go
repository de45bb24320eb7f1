// Package scheduler periodically scans the store for due reminders and
// announces them on the notification bus.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ajakab/perch/internal/notify"
	"github.com/ajakab/perch/internal/storage"
)

const defaultInterval = 30 * time.Second

// ReminderStore abstracts the reminder queries the scheduler needs.
type ReminderStore interface {
	DueReminders(now int64) ([]storage.Reminder, error)
	MarkTriggered(id string, now int64) (bool, error)
	GetEventDetail(id string) (storage.EventDetail, error)
}

// Publisher delivers reminder-due notifications.
type Publisher interface {
	Publish(topic string, payload any)
}

// ReminderDue is the payload published for each triggered reminder.
type ReminderDue struct {
	Reminder    storage.Reminder      `json:"reminder"`
	Event       storage.TimelineEvent `json:"event"`
	Attachments []storage.Attachment  `json:"attachments,omitempty"`
}

// Scheduler drives the reminder lifecycle. It owns the transition from
// pending/snoozed to triggered; the store's conditional update keeps a
// concurrent dismiss from being overwritten.
type Scheduler struct {
	store    ReminderStore
	bus      Publisher
	clock    Clock
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Scheduler. If interval is <= 0, it defaults to 30s.
func New(store ReminderStore, bus Publisher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		store:    store,
		bus:      bus,
		clock:    RealClock{},
		interval: interval,
		logger:   slog.Default().With("component", "scheduler"),
	}
}

// Run scans on the configured interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if n, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("reminder scan failed", "error", err)
		} else if n > 0 {
			s.logger.Info("triggered reminders", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single scan and returns the number of reminders it
// triggered. A failure on one reminder does not stop the rest.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.clock.Now().UnixMilli()
	due, err := s.store.DueReminders(now)
	if err != nil {
		return 0, fmt.Errorf("scanning due reminders: %w", err)
	}

	triggered := 0
	for _, rem := range due {
		if ctx.Err() != nil {
			return triggered, ctx.Err()
		}
		ok, err := s.trigger(rem, now)
		if err != nil {
			s.logger.Warn("skipping reminder", "reminder_id", rem.ID, "error", err)
			continue
		}
		if ok {
			triggered++
		}
	}
	return triggered, nil
}

func (s *Scheduler) trigger(rem storage.Reminder, now int64) (bool, error) {
	// Load the parent before the state transition: a load failure here
	// leaves the reminder due for the next scan instead of consuming it.
	detail, err := s.store.GetEventDetail(rem.EventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("parent event %s missing", rem.EventID)
		}
		return false, fmt.Errorf("loading parent event: %w", err)
	}

	won, err := s.store.MarkTriggered(rem.ID, now)
	if err != nil {
		return false, fmt.Errorf("marking triggered: %w", err)
	}
	if !won {
		// Dismissed or already triggered since the scan query ran.
		return false, nil
	}

	rem.Status = storage.ReminderTriggered
	rem.TriggeredAt = now
	s.bus.Publish(notify.TopicReminderDue, ReminderDue{
		Reminder:    rem,
		Event:       detail.Event,
		Attachments: detail.Attachments,
	})
	return true, nil
}
