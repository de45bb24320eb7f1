package storage

import "fmt"

// UpsertDailyExport records a rendered daily digest. The table is unique on
// (date_key, output_format): re-exporting the same day/format keeps the
// original row id but refreshes path and timestamp.
func (s *Store) UpsertDailyExport(e DailyExport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO daily_exports (id, date_key, output_format, output_path, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date_key, output_format)
		DO UPDATE SET output_path = excluded.output_path, created_at = excluded.created_at`,
		e.ID, e.DateKey, e.OutputFormat, e.OutputPath, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting export %s/%s: %w", e.DateKey, e.OutputFormat, err)
	}
	return nil
}

// ListExports returns all export records, most recent date first.
func (s *Store) ListExports() ([]DailyExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, date_key, output_format, output_path, created_at
		FROM daily_exports ORDER BY date_key DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying exports: %w", err)
	}
	defer rows.Close()

	var result []DailyExport
	for rows.Next() {
		var e DailyExport
		if err := rows.Scan(&e.ID, &e.DateKey, &e.OutputFormat, &e.OutputPath, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning export: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
