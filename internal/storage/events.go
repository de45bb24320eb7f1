package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ajakab/perch/internal/mimetype"
)

const defaultPageSize = 50

// fallbackReminderMessage is used when a drop carries a reminder but no
// message, note, or derivable title.
const fallbackReminderMessage = "Reminder"

// DropEventInput describes a file/image drop to record. Paths must be
// absolute paths as seen at drop time. RemindAt of zero means no reminder.
type DropEventInput struct {
	Paths         []string
	Note          string
	RemindAt      int64
	RemindMessage string
}

// TextEventInput describes a text note or free thought. A non-empty
// TextContent makes the event a "text" event, otherwise it is a "thought".
type TextEventInput struct {
	Note          string
	TextContent   string
	RemindAt      int64
	RemindMessage string
}

// attachmentMeta is what we learn about a dropped path before touching the
// database: metadata reads and hashing happen outside the store lock.
type attachmentMeta struct {
	path     string
	fileName string
	mime     string
	kind     string
	size     int64
	sha256   string
}

// CreateDropEvent records a multi-file drop as one timeline event with one
// attachment per path, plus an optional reminder. The event type follows the
// MIME classification of the first path only. Each path is hashed
// independently; an unreadable file degrades to an empty hash rather than
// failing the drop. All rows land in a single transaction.
func (s *Store) CreateDropEvent(in DropEventInput) (EventDetail, error) {
	if len(in.Paths) == 0 {
		return EventDetail{}, ErrEmptyInput
	}

	metas := s.collectAttachmentMeta(in.Paths)

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.nowMillis()
	eventType := EventFile
	if mimetype.IsImage(metas[0].mime) {
		eventType = EventImage
	}
	title := metas[0].fileName

	event := TimelineEvent{
		ID:        NewID(),
		Type:      eventType,
		Title:     title,
		Note:      in.Note,
		CreatedAt: createdAt,
		Source:    SourceDrop,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return EventDetail{}, fmt.Errorf("beginning drop transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO timeline_events (id, type, title, note, created_at, source, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		event.ID, event.Type, nullStr(event.Title), nullStr(event.Note), event.CreatedAt, event.Source,
	); err != nil {
		return EventDetail{}, fmt.Errorf("inserting event: %w", err)
	}

	attachments := make([]Attachment, 0, len(metas))
	for _, m := range metas {
		att := Attachment{
			ID:           NewID(),
			EventID:      event.ID,
			Kind:         m.kind,
			OriginalPath: m.path,
			FileName:     m.fileName,
			MimeType:     m.mime,
			SizeBytes:    m.size,
			SHA256:       m.sha256,
			CreatedAt:    createdAt,
		}
		if _, err := tx.Exec(`
			INSERT INTO attachments (id, event_id, kind, original_path, file_name, mime_type, size_bytes, sha256, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			att.ID, att.EventID, att.Kind, att.OriginalPath, nullStr(att.FileName),
			nullStr(att.MimeType), nullInt(att.SizeBytes), nullStr(att.SHA256), att.CreatedAt,
		); err != nil {
			return EventDetail{}, fmt.Errorf("inserting attachment for %s: %w", m.path, err)
		}
		attachments = append(attachments, att)
	}

	var reminders []Reminder
	if in.RemindAt != 0 {
		message := firstNonEmpty(in.RemindMessage, in.Note, title, fallbackReminderMessage)
		rem, err := insertReminder(tx, event.ID, in.RemindAt, message, createdAt)
		if err != nil {
			return EventDetail{}, err
		}
		reminders = append(reminders, rem)
	}

	if err := tx.Commit(); err != nil {
		return EventDetail{}, fmt.Errorf("committing drop event: %w", err)
	}
	return EventDetail{Event: event, Attachments: attachments, Reminders: reminders}, nil
}

// collectAttachmentMeta stats, classifies, and hashes every dropped path.
// Hashing is bounded-concurrent and happens before the store lock is taken so
// large files never stall other store operations.
func (s *Store) collectAttachmentMeta(paths []string) []attachmentMeta {
	metas := make([]attachmentMeta, len(paths))
	var g errgroup.Group
	g.SetLimit(4)

	for i, path := range paths {
		g.Go(func() error {
			m := attachmentMeta{
				path:     path,
				fileName: filepath.Base(path),
				mime:     s.classify(path),
			}
			m.kind = EventFile
			if mimetype.IsImage(m.mime) {
				m.kind = EventImage
			}
			if fi, err := os.Stat(path); err == nil {
				m.size = fi.Size()
			}
			// Hash failure is not an error: the attachment is kept
			// with an empty digest.
			if sum, err := HashFile(path); err == nil {
				m.sha256 = sum
			}
			metas[i] = m
			return nil
		})
	}
	g.Wait()
	return metas
}

// CreateTextEvent records a manual text note or thought, with an optional
// reminder, in a single transaction.
func (s *Store) CreateTextEvent(in TextEventInput) (EventDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.nowMillis()
	eventType := EventThought
	if in.TextContent != "" {
		eventType = EventText
	}

	event := TimelineEvent{
		ID:          NewID(),
		Type:        eventType,
		Note:        in.Note,
		TextContent: in.TextContent,
		CreatedAt:   createdAt,
		Source:      SourceManual,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return EventDetail{}, fmt.Errorf("beginning text transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO timeline_events (id, type, note, text_content, created_at, source, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		event.ID, event.Type, nullStr(event.Note), nullStr(event.TextContent), event.CreatedAt, event.Source,
	); err != nil {
		return EventDetail{}, fmt.Errorf("inserting event: %w", err)
	}

	var reminders []Reminder
	if in.RemindAt != 0 {
		message := firstNonEmpty(in.RemindMessage, in.Note)
		rem, err := insertReminder(tx, event.ID, in.RemindAt, message, createdAt)
		if err != nil {
			return EventDetail{}, err
		}
		reminders = append(reminders, rem)
	}

	if err := tx.Commit(); err != nil {
		return EventDetail{}, fmt.Errorf("committing text event: %w", err)
	}
	return EventDetail{Event: event, Reminders: reminders}, nil
}

// ListQuery bounds and pages a timeline listing. Zero StartDate/EndDate mean
// unbounded; bounds are inclusive. Page is 0-indexed.
type ListQuery struct {
	StartDate int64
	EndDate   int64
	Page      int
	PageSize  int
}

// ListEvents returns non-deleted events newest first, each with its
// attachments and reminders.
func (s *Store) ListEvents(q ListQuery) ([]EventDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.Page < 0 {
		q.Page = 0
	}

	query := `SELECT id, type, title, note, text_content, created_at, source, is_deleted
		FROM timeline_events WHERE is_deleted = 0`
	args := []any{}
	if q.StartDate != 0 {
		query += " AND created_at >= ?"
		args = append(args, q.StartDate)
	}
	if q.EndDate != 0 {
		query += " AND created_at <= ?"
		args = append(args, q.EndDate)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, q.PageSize, q.Page*q.PageSize)

	events, err := s.queryEvents(query, args...)
	if err != nil {
		return nil, err
	}
	return s.attachDetails(events)
}

// DayEvents returns non-deleted events with created_at in [start, end],
// oldest first, with attachments. Used by the daily export renderer.
func (s *Store) DayEvents(start, end int64) ([]EventDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.queryEvents(`
		SELECT id, type, title, note, text_content, created_at, source, is_deleted
		FROM timeline_events
		WHERE created_at >= ? AND created_at <= ? AND is_deleted = 0
		ORDER BY created_at ASC`, start, end)
	if err != nil {
		return nil, err
	}
	return s.attachDetails(events)
}

// GetEventDetail returns the event with the given id along with its
// attachments and reminders. Soft-deleted events are still retrievable here;
// only listings filter them.
func (s *Store) GetEventDetail(id string) (EventDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventDetailLocked(id)
}

func (s *Store) eventDetailLocked(id string) (EventDetail, error) {
	row := s.db.QueryRow(`
		SELECT id, type, title, note, text_content, created_at, source, is_deleted
		FROM timeline_events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return EventDetail{}, ErrNotFound
	}
	if err != nil {
		return EventDetail{}, fmt.Errorf("loading event %s: %w", id, err)
	}

	attachments, err := s.attachmentsFor(id)
	if err != nil {
		return EventDetail{}, err
	}
	reminders, err := s.remindersFor(id)
	if err != nil {
		return EventDetail{}, err
	}
	return EventDetail{Event: event, Attachments: attachments, Reminders: reminders}, nil
}

// DeleteEvent soft-deletes an event. Attachments and reminders stay intact so
// historical exports remain correct. Deleting twice is not an error.
func (s *Store) DeleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("UPDATE timeline_events SET is_deleted = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("soft-deleting event %s: %w", id, err)
	}
	return nil
}

// UpdateEventNote overwrites the note on an event. Content is not validated.
func (s *Store) UpdateEventNote(id, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE timeline_events SET note = ? WHERE id = ?", nullStr(note), id)
	if err != nil {
		return fmt.Errorf("updating note on %s: %w", id, err)
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

// --- scanning helpers (callers hold the lock) ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (TimelineEvent, error) {
	var e TimelineEvent
	var title, note, textContent, source sql.NullString
	var isDeleted int
	err := row.Scan(&e.ID, &e.Type, &title, &note, &textContent, &e.CreatedAt, &source, &isDeleted)
	if err != nil {
		return TimelineEvent{}, err
	}
	e.Title = title.String
	e.Note = note.String
	e.TextContent = textContent.String
	e.Source = source.String
	e.IsDeleted = isDeleted != 0
	return e, nil
}

func (s *Store) queryEvents(query string, args ...any) ([]TimelineEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []TimelineEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) attachDetails(events []TimelineEvent) ([]EventDetail, error) {
	details := make([]EventDetail, 0, len(events))
	for _, e := range events {
		attachments, err := s.attachmentsFor(e.ID)
		if err != nil {
			return nil, err
		}
		reminders, err := s.remindersFor(e.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, EventDetail{Event: e, Attachments: attachments, Reminders: reminders})
	}
	return details, nil
}

func (s *Store) attachmentsFor(eventID string) ([]Attachment, error) {
	rows, err := s.db.Query(`
		SELECT id, event_id, kind, original_path, stored_path, file_name, mime_type, size_bytes, sha256, width, height, created_at
		FROM attachments WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("querying attachments for %s: %w", eventID, err)
	}
	defer rows.Close()

	var result []Attachment
	for rows.Next() {
		var a Attachment
		var storedPath, fileName, mimeType, sha sql.NullString
		var size sql.NullInt64
		var width, height sql.NullInt32
		if err := rows.Scan(&a.ID, &a.EventID, &a.Kind, &a.OriginalPath, &storedPath,
			&fileName, &mimeType, &size, &sha, &width, &height, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		a.StoredPath = storedPath.String
		a.FileName = fileName.String
		a.MimeType = mimeType.String
		a.SizeBytes = size.Int64
		a.SHA256 = sha.String
		a.Width = int(width.Int32)
		a.Height = int(height.Int32)
		result = append(result, a)
	}
	return result, rows.Err()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
