package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyInput is returned when an operation requires at least one item and got none.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidKind is returned when a caller-supplied kind value is not recognized.
	ErrInvalidKind = errors.New("invalid kind")
	// ErrFileTooLarge is returned by ReadFileContent for files over the size cap.
	ErrFileTooLarge = errors.New("file too large")
)

// Timeline event types.
const (
	EventFile    = "file"
	EventImage   = "image"
	EventText    = "text"
	EventThought = "thought"
)

// Event sources.
const (
	SourceDrop      = "drop"
	SourceManual    = "manual"
	SourceClipboard = "clipboard"
)

// Reminder statuses.
const (
	ReminderPending   = "pending"
	ReminderTriggered = "triggered"
	ReminderDismissed = "dismissed"
	ReminderSnoozed   = "snoozed"
)

// TimelineEvent is a single captured moment: a file or image drop, a text
// note, or a free-form thought. All timestamps are milliseconds since epoch.
// Empty optional strings are stored as NULL.
type TimelineEvent struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Note        string `json:"note,omitempty"`
	TextContent string `json:"textContent,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	Source      string `json:"source,omitempty"`
	IsDeleted   bool   `json:"isDeleted"`
}

// Attachment is one file or image bound to a timeline event. It is written
// once alongside its parent event and never updated. An empty SHA256 means
// hashing the source file failed; that is not an error condition.
type Attachment struct {
	ID           string `json:"id"`
	EventID      string `json:"eventId"`
	Kind         string `json:"kind"`
	OriginalPath string `json:"originalPath"`
	StoredPath   string `json:"storedPath,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	SizeBytes    int64  `json:"sizeBytes,omitempty"`
	SHA256       string `json:"sha256,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
}

// Reminder is a scheduled alert tied to an event.
//
// Lifecycle: pending -> {triggered, dismissed, snoozed};
// snoozed -> {triggered, dismissed, snoozed}. TriggeredAt is set once the
// reminder has fired (or been dismissed); SnoozeUntil is set while snoozed.
// Rows are never deleted.
type Reminder struct {
	ID          string `json:"id"`
	EventID     string `json:"eventId"`
	RemindAt    int64  `json:"remindAt"`
	Message     string `json:"message"`
	Status      string `json:"status"`
	TriggeredAt int64  `json:"triggeredAt,omitempty"`
	SnoozeUntil int64  `json:"snoozeUntil,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// DailyExport records one rendered daily digest. Unique on
// (DateKey, OutputFormat): re-exporting the same day/format refreshes the
// existing row in place.
type DailyExport struct {
	ID           string `json:"id"`
	DateKey      string `json:"dateKey"`
	OutputFormat string `json:"outputFormat"`
	OutputPath   string `json:"outputPath"`
	CreatedAt    int64  `json:"createdAt"`
}

// DropRecord is a row in the legacy pre-timeline table. CreatedAt is in
// seconds, not milliseconds. New-schema operations never write to it.
type DropRecord struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Hash      string `json:"hash"`
	CreatedAt int64  `json:"createdAt"`
	Summary   string `json:"summary,omitempty"`
	Actions   string `json:"actions,omitempty"`
	Memory    string `json:"memory,omitempty"`
	Tags      string `json:"tags,omitempty"`
}

// EventDetail bundles an event with its attachments and reminders.
type EventDetail struct {
	Event       TimelineEvent `json:"event"`
	Attachments []Attachment  `json:"attachments"`
	Reminders   []Reminder    `json:"reminders"`
}
