package storage

import "testing"

func TestUpsertDailyExportKeepsOneRow(t *testing.T) {
	s := openTestStore(t)

	first := DailyExport{
		ID:           NewID(),
		DateKey:      "2024-03-10",
		OutputFormat: "md",
		OutputPath:   "/exports/2024-03-10.md",
		CreatedAt:    1000,
	}
	if err := s.UpsertDailyExport(first); err != nil {
		t.Fatalf("UpsertDailyExport: %v", err)
	}

	second := first
	second.ID = NewID()
	second.OutputPath = "/exports/rewritten/2024-03-10.md"
	second.CreatedAt = 2000
	if err := s.UpsertDailyExport(second); err != nil {
		t.Fatalf("UpsertDailyExport (re-export): %v", err)
	}

	exports, err := s.ListExports()
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	if len(exports) != 1 {
		t.Fatalf("got %d rows after re-export, want 1", len(exports))
	}
	got := exports[0]
	if got.ID != first.ID {
		t.Errorf("row id = %q, want original %q preserved", got.ID, first.ID)
	}
	if got.OutputPath != second.OutputPath {
		t.Errorf("OutputPath = %q, want refreshed %q", got.OutputPath, second.OutputPath)
	}
	if got.CreatedAt != second.CreatedAt {
		t.Errorf("CreatedAt = %d, want refreshed %d", got.CreatedAt, second.CreatedAt)
	}
}

func TestListExportsDistinctFormats(t *testing.T) {
	s := openTestStore(t)

	for _, e := range []DailyExport{
		{ID: NewID(), DateKey: "2024-03-09", OutputFormat: "md", OutputPath: "/e/09.md", CreatedAt: 1},
		{ID: NewID(), DateKey: "2024-03-10", OutputFormat: "md", OutputPath: "/e/10.md", CreatedAt: 2},
		{ID: NewID(), DateKey: "2024-03-10", OutputFormat: "html", OutputPath: "/e/10.html", CreatedAt: 3},
	} {
		if err := s.UpsertDailyExport(e); err != nil {
			t.Fatalf("UpsertDailyExport(%s/%s): %v", e.DateKey, e.OutputFormat, err)
		}
	}

	exports, err := s.ListExports()
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	// Same day in two formats stays two rows; ordering is newest date first.
	if len(exports) != 3 {
		t.Fatalf("got %d rows, want 3", len(exports))
	}
	if exports[0].DateKey != "2024-03-10" || exports[2].DateKey != "2024-03-09" {
		t.Errorf("unexpected date order: %q .. %q", exports[0].DateKey, exports[2].DateKey)
	}
}
