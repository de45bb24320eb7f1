package storage

import (
	"database/sql"
	"fmt"
)

const minuteMillis = 60_000

// insertReminder writes a pending reminder inside an existing transaction.
func insertReminder(tx *sql.Tx, eventID string, remindAt int64, message string, createdAt int64) (Reminder, error) {
	rem := Reminder{
		ID:        NewID(),
		EventID:   eventID,
		RemindAt:  remindAt,
		Message:   message,
		Status:    ReminderPending,
		CreatedAt: createdAt,
	}
	if _, err := tx.Exec(`
		INSERT INTO reminders (id, event_id, remind_at, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rem.ID, rem.EventID, rem.RemindAt, rem.Message, rem.Status, rem.CreatedAt,
	); err != nil {
		return Reminder{}, fmt.Errorf("inserting reminder: %w", err)
	}
	return rem, nil
}

// CreateReminder adds a pending reminder to an existing event. The schema
// does not prevent several reminders on the same event.
func (s *Store) CreateReminder(eventID string, remindAt int64, message string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.nowMillis()
	tx, err := s.db.Begin()
	if err != nil {
		return Reminder{}, fmt.Errorf("beginning reminder transaction: %w", err)
	}
	defer tx.Rollback()

	rem, err := insertReminder(tx, eventID, remindAt, message, createdAt)
	if err != nil {
		return Reminder{}, err
	}
	if err := tx.Commit(); err != nil {
		return Reminder{}, fmt.Errorf("committing reminder: %w", err)
	}
	return rem, nil
}

// SnoozeReminder pushes a reminder out by the given number of minutes from
// now. Any previous snooze target is overwritten.
func (s *Store) SnoozeReminder(id string, minutes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snoozeUntil := s.nowMillis() + minutes*minuteMillis
	res, err := s.db.Exec(`
		UPDATE reminders SET status = ?, snooze_until = ? WHERE id = ?`,
		ReminderSnoozed, snoozeUntil, id)
	if err != nil {
		return fmt.Errorf("snoozing reminder %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DismissReminder marks a reminder handled. TriggeredAt is stamped even if
// the reminder never fired: dismissal counts as the terminal handled time.
func (s *Store) DismissReminder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE reminders SET status = ?, triggered_at = ? WHERE id = ?`,
		ReminderDismissed, s.nowMillis(), id)
	if err != nil {
		return fmt.Errorf("dismissing reminder %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPendingReminders returns reminders still awaiting a fire (pending or
// snoozed), soonest first.
func (s *Store) ListPendingReminders() ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queryReminders(`
		SELECT id, event_id, remind_at, message, status, triggered_at, snooze_until, created_at
		FROM reminders WHERE status = ? OR status = ? ORDER BY remind_at ASC`,
		ReminderPending, ReminderSnoozed)
}

// DueReminders returns reminders whose fire time has passed as of now:
// pending ones past remind_at and snoozed ones past snooze_until, ordered by
// remind_at ascending.
func (s *Store) DueReminders(now int64) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queryReminders(`
		SELECT id, event_id, remind_at, message, status, triggered_at, snooze_until, created_at
		FROM reminders
		WHERE (status = ? AND remind_at <= ?) OR (status = ? AND snooze_until <= ?)
		ORDER BY remind_at ASC`,
		ReminderPending, now, ReminderSnoozed, now)
}

// MarkTriggered transitions a reminder to triggered, but only if it is still
// pending or snoozed. The conditional update makes the scheduler/user race
// safe: whichever write lands first wins and the loser is a no-op. The
// returned bool reports whether this call won the transition.
func (s *Store) MarkTriggered(id string, now int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE reminders SET status = ?, triggered_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		ReminderTriggered, now, id, ReminderPending, ReminderSnoozed)
	if err != nil {
		return false, fmt.Errorf("marking reminder %s triggered: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) remindersFor(eventID string) ([]Reminder, error) {
	return s.queryReminders(`
		SELECT id, event_id, remind_at, message, status, triggered_at, snooze_until, created_at
		FROM reminders WHERE event_id = ?`, eventID)
}

func (s *Store) queryReminders(query string, args ...any) ([]Reminder, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reminders: %w", err)
	}
	defer rows.Close()

	var result []Reminder
	for rows.Next() {
		var r Reminder
		var triggeredAt, snoozeUntil sql.NullInt64
		if err := rows.Scan(&r.ID, &r.EventID, &r.RemindAt, &r.Message, &r.Status,
			&triggeredAt, &snoozeUntil, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning reminder: %w", err)
		}
		r.TriggeredAt = triggeredAt.Int64
		r.SnoozeUntil = snoozeUntil.Int64
		result = append(result, r)
	}
	return result, rows.Err()
}
