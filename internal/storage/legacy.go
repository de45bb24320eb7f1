package storage

import "fmt"

// mockResultColumns maps a mock-result kind to its drop_records column. The
// column names are fixed; anything else is rejected before touching SQL.
var mockResultColumns = map[string]string{
	"summarize": "summary",
	"actions":   "actions",
	"remember":  "memory",
}

// InsertDropRecord hashes the file at path and inserts a row into the legacy
// drop_records table. Unlike timeline attachments, a hash failure here is an
// error: the legacy flow has nothing to record without one. The timestamp is
// seconds, matching the old schema.
func (s *Store) InsertDropRecord(path string) (DropRecord, error) {
	hash, err := HashFile(path)
	if err != nil {
		return DropRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().Unix()
	res, err := s.db.Exec(`
		INSERT INTO drop_records (path, hash, created_at) VALUES (?, ?, ?)`,
		path, hash, createdAt)
	if err != nil {
		return DropRecord{}, fmt.Errorf("inserting drop record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return DropRecord{}, err
	}
	return DropRecord{ID: id, Path: path, Hash: hash, CreatedAt: createdAt}, nil
}

// SaveMockResult stores generated content on a legacy drop record. Kind must
// be one of "summarize", "actions", or "remember".
func (s *Store) SaveMockResult(recordID int64, kind, content string) error {
	column, ok := mockResultColumns[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(fmt.Sprintf("UPDATE drop_records SET %s = ? WHERE id = ?", column), content, recordID)
	if err != nil {
		return fmt.Errorf("saving %s result: %w", kind, err)
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
