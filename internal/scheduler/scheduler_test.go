package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/ajakab/perch/internal/notify"
	"github.com/ajakab/perch/internal/storage"
)

type stubClock struct {
	t time.Time
}

func (c *stubClock) Now() time.Time          { return c.t }
func (c *stubClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type captureBus struct {
	published []notify.Notification
}

func (b *captureBus) Publish(topic string, payload any) {
	b.published = append(b.published, notify.Notification{Topic: topic, Payload: payload})
}

func newTestScheduler(t *testing.T) (*Scheduler, *storage.Store, *captureBus, *stubClock) {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	bus := &captureBus{}
	clock := &stubClock{t: time.Now()}
	sched := New(s, bus, time.Minute)
	sched.clock = clock
	return sched, s, bus, clock
}

func seedReminder(t *testing.T, s *storage.Store, remindAt int64) (storage.EventDetail, storage.Reminder) {
	t.Helper()
	d, err := s.CreateTextEvent(storage.TextEventInput{
		Note:          "water the plants",
		RemindAt:      remindAt,
		RemindMessage: "plants!",
	})
	if err != nil {
		t.Fatalf("CreateTextEvent: %v", err)
	}
	if len(d.Reminders) != 1 {
		t.Fatalf("got %d reminders, want 1", len(d.Reminders))
	}
	return d, d.Reminders[0]
}

func TestRunOnceTriggersDue(t *testing.T) {
	sched, s, bus, clock := newTestScheduler(t)
	detail, rem := seedReminder(t, s, clock.Now().UnixMilli()-1000)

	n, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("triggered %d, want 1", n)
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d notifications, want 1", len(bus.published))
	}

	got := bus.published[0]
	if got.Topic != notify.TopicReminderDue {
		t.Errorf("Topic = %q, want %q", got.Topic, notify.TopicReminderDue)
	}
	payload, ok := got.Payload.(ReminderDue)
	if !ok {
		t.Fatalf("payload type = %T, want ReminderDue", got.Payload)
	}
	if payload.Reminder.ID != rem.ID {
		t.Errorf("payload reminder = %q, want %q", payload.Reminder.ID, rem.ID)
	}
	if payload.Reminder.Status != storage.ReminderTriggered {
		t.Errorf("payload status = %q, want triggered", payload.Reminder.Status)
	}
	if payload.Event.ID != detail.Event.ID {
		t.Errorf("payload event = %q, want %q", payload.Event.ID, detail.Event.ID)
	}

	// A second scan finds nothing; the transition consumed the reminder.
	n, err = sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce (second): %v", err)
	}
	if n != 0 || len(bus.published) != 1 {
		t.Errorf("second scan triggered %d and published %d total, want 0 and 1", n, len(bus.published))
	}
}

func TestFutureReminderNotTriggered(t *testing.T) {
	sched, s, bus, clock := newTestScheduler(t)
	seedReminder(t, s, clock.Now().UnixMilli()+60_000)

	n, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 0 || len(bus.published) != 0 {
		t.Errorf("triggered %d, published %d, want none", n, len(bus.published))
	}

	clock.Advance(2 * time.Minute)
	n, err = sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce (after advance): %v", err)
	}
	if n != 1 {
		t.Errorf("triggered %d after due time passed, want 1", n)
	}
}

func TestSnoozeDefersTrigger(t *testing.T) {
	sched, s, bus, clock := newTestScheduler(t)
	_, rem := seedReminder(t, s, clock.Now().UnixMilli()-1000)

	// Snooze pushes it past the next scan. The store stamps snooze_until
	// from wall time, so keep the stub clock anchored to wall time too.
	if err := s.SnoozeReminder(rem.ID, 30); err != nil {
		t.Fatalf("SnoozeReminder: %v", err)
	}

	n, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 0 || len(bus.published) != 0 {
		t.Errorf("snoozed reminder triggered %d, published %d, want none", n, len(bus.published))
	}

	clock.Advance(31 * time.Minute)
	n, err = sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce (after snooze expiry): %v", err)
	}
	if n != 1 || len(bus.published) != 1 {
		t.Errorf("expired snooze triggered %d, published %d, want 1 and 1", n, len(bus.published))
	}
}

func TestDismissedReminderNeverFires(t *testing.T) {
	sched, s, bus, clock := newTestScheduler(t)
	_, rem := seedReminder(t, s, clock.Now().UnixMilli()-1000)

	if err := s.DismissReminder(rem.ID); err != nil {
		t.Fatalf("DismissReminder: %v", err)
	}

	n, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 0 || len(bus.published) != 0 {
		t.Errorf("dismissed reminder triggered %d, published %d, want none", n, len(bus.published))
	}
}

// fakeStore drives the failure paths a real store cannot easily produce.
type fakeStore struct {
	due       []storage.Reminder
	detailErr error
	markWins  bool
	markedIDs []string
}

func (f *fakeStore) DueReminders(now int64) ([]storage.Reminder, error) { return f.due, nil }

func (f *fakeStore) MarkTriggered(id string, now int64) (bool, error) {
	f.markedIDs = append(f.markedIDs, id)
	return f.markWins, nil
}

func (f *fakeStore) GetEventDetail(id string) (storage.EventDetail, error) {
	if f.detailErr != nil {
		return storage.EventDetail{}, f.detailErr
	}
	return storage.EventDetail{Event: storage.TimelineEvent{ID: id}}, nil
}

func TestMissingParentLeavesReminderDue(t *testing.T) {
	fs := &fakeStore{
		due:       []storage.Reminder{{ID: "r1", EventID: "gone"}},
		detailErr: storage.ErrNotFound,
	}
	bus := &captureBus{}
	sched := New(fs, bus, time.Minute)

	n, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 0 || len(bus.published) != 0 {
		t.Errorf("triggered %d, published %d, want none", n, len(bus.published))
	}
	if len(fs.markedIDs) != 0 {
		t.Errorf("MarkTriggered called for %v; a failed parent load must not consume the reminder", fs.markedIDs)
	}
}

func TestLostRaceSuppressesNotification(t *testing.T) {
	fs := &fakeStore{
		due:      []storage.Reminder{{ID: "r1", EventID: "e1"}},
		markWins: false,
	}
	bus := &captureBus{}
	sched := New(fs, bus, time.Minute)

	n, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 0 || len(bus.published) != 0 {
		t.Errorf("lost transition still triggered %d, published %d", n, len(bus.published))
	}
}
