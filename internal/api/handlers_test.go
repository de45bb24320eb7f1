package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ajakab/perch/internal/export"
	"github.com/ajakab/perch/internal/notify"
	"github.com/ajakab/perch/internal/storage"
)

func setupAppHandler(t *testing.T) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	handler := NewAppHandler(AppDeps{
		Store:    store,
		Exporter: export.New(store, t.TempDir(), time.Local),
		Bus:      notify.New(),
	})
	return handler, store
}

func jsonReq(method, url, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(t *testing.T, h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(method, url, body))
	return rr
}

func TestCreateTextEventEndpoint(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodPost, "/events/text", `{"note":"standup notes","textContent":"went fine"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var detail storage.EventDetail
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if detail.Event.Type != storage.EventText {
		t.Errorf("event type = %q, want text", detail.Event.Type)
	}

	rr = do(t, h, http.MethodGet, "/events/"+detail.Event.ID, "")
	if rr.Code != http.StatusOK {
		t.Errorf("GET event status = %d, want 200", rr.Code)
	}
}

func TestCreateTextEventRequiresContent(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodPost, "/events/text", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestCreateDropEventEndpoint(t *testing.T) {
	h, _ := setupAppHandler(t)

	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("pdf bytes"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	body := fmt.Sprintf(`{"paths":[%q],"note":"quarterly report"}`, path)
	rr := do(t, h, http.MethodPost, "/events/drop", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body = %s", rr.Code, rr.Body.String())
	}

	var detail storage.EventDetail
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(detail.Attachments) != 1 {
		t.Errorf("got %d attachments, want 1", len(detail.Attachments))
	}
}

func TestCreateDropEventEmptyPaths(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodPost, "/events/drop", `{"paths":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body = %s", rr.Code, rr.Body.String())
	}
}

func TestGetEventNotFound(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodGet, "/events/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestListEventsEmpty(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodGet, "/events", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("empty list body = %q, want []", got)
	}
}

func TestDeleteEventEndpoint(t *testing.T) {
	h, store := setupAppHandler(t)
	detail, err := store.CreateTextEvent(storage.TextEventInput{Note: "bye"})
	if err != nil {
		t.Fatalf("CreateTextEvent: %v", err)
	}

	rr := do(t, h, http.MethodDelete, "/events/"+detail.Event.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/events", "")
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("deleted event still listed: %s", got)
	}
}

func TestReminderLifecycleEndpoints(t *testing.T) {
	h, store := setupAppHandler(t)
	detail, err := store.CreateTextEvent(storage.TextEventInput{Note: "call dentist"})
	if err != nil {
		t.Fatalf("CreateTextEvent: %v", err)
	}

	body := fmt.Sprintf(`{"remindAt":%d,"message":"dentist"}`, time.Now().Add(time.Hour).UnixMilli())
	rr := do(t, h, http.MethodPost, "/events/"+detail.Event.ID+"/reminders", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create reminder status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var rem storage.Reminder
	if err := json.Unmarshal(rr.Body.Bytes(), &rem); err != nil {
		t.Fatalf("decoding reminder: %v", err)
	}

	rr = do(t, h, http.MethodGet, "/reminders", "")
	var pending []storage.Reminder
	if err := json.Unmarshal(rr.Body.Bytes(), &pending); err != nil {
		t.Fatalf("decoding pending list: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending reminders, want 1", len(pending))
	}

	rr = do(t, h, http.MethodPost, "/reminders/"+rem.ID+"/snooze", `{"minutes":15}`)
	if rr.Code != http.StatusOK {
		t.Errorf("snooze status = %d; body = %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/reminders/"+rem.ID+"/snooze", `{"minutes":0}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("zero-minute snooze status = %d, want 400", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/reminders/"+rem.ID+"/dismiss", "")
	if rr.Code != http.StatusOK {
		t.Errorf("dismiss status = %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/reminders", "")
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("dismissed reminder still pending: %s", got)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodGet, "/settings/theme", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing setting status = %d, want 404", rr.Code)
	}

	rr = do(t, h, http.MethodPut, "/settings/theme", `{"value":"dark"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put setting status = %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/settings/theme", "")
	var got map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding setting: %v", err)
	}
	if got["value"] != "dark" {
		t.Errorf("value = %q, want dark", got["value"])
	}
}

func TestExportEndpoint(t *testing.T) {
	h, store := setupAppHandler(t)
	if _, err := store.CreateTextEvent(storage.TextEventInput{Note: "exported"}); err != nil {
		t.Fatalf("CreateTextEvent: %v", err)
	}

	today := time.Now().Format("2006-01-02")
	rr := do(t, h, http.MethodPost, "/exports", fmt.Sprintf(`{"dateKey":%q}`, today))
	if rr.Code != http.StatusCreated {
		t.Fatalf("export status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, err := os.Stat(resp["path"]); err != nil {
		t.Errorf("export file missing: %v", err)
	}

	rr = do(t, h, http.MethodPost, "/exports", `{"dateKey":"not-a-date"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/exports", "")
	var exports []storage.DailyExport
	if err := json.Unmarshal(rr.Body.Bytes(), &exports); err != nil {
		t.Fatalf("decoding exports: %v", err)
	}
	if len(exports) != 1 {
		t.Errorf("got %d export records, want 1", len(exports))
	}
}

func TestSaveAndReadFileEndpoints(t *testing.T) {
	// A disk-backed store: saved files land under its data dir.
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	h := NewAppHandler(AppDeps{
		Store:    store,
		Exporter: export.New(store, t.TempDir(), time.Local),
	})

	rr := do(t, h, http.MethodPost, "/files", `{"fileName":"note.txt","content":"aGVsbG8="}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("save file status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var saved map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	rr = do(t, h, http.MethodGet, "/files/content?path="+saved["path"], "")
	if rr.Code != http.StatusOK {
		t.Fatalf("read file status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var read map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &read); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if read["content"] != "hello" {
		t.Errorf("content = %q, want hello", read["content"])
	}

	rr = do(t, h, http.MethodPost, "/files", `{"fileName":"x","content":"%%%"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad base64 status = %d, want 400", rr.Code)
	}
}

func TestLegacyDropEndpoints(t *testing.T) {
	h, _ := setupAppHandler(t)

	path := filepath.Join(t.TempDir(), "legacy.txt")
	if err := os.WriteFile(path, []byte("old flow"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	rr := do(t, h, http.MethodPost, "/drops", fmt.Sprintf(`{"path":%q}`, path))
	if rr.Code != http.StatusCreated {
		t.Fatalf("insert drop status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var rec storage.DropRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decoding record: %v", err)
	}

	url := fmt.Sprintf("/drops/%d/results", rec.ID)
	rr = do(t, h, http.MethodPost, url, `{"kind":"summarize","content":"an old file"}`)
	if rr.Code != http.StatusOK {
		t.Errorf("save result status = %d; body = %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, url, `{"kind":"translate","content":"x"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", rr.Code)
	}
}

func TestNotificationsStream(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	bus := notify.New()
	h := NewAppHandler(AppDeps{
		Store:    store,
		Exporter: export.New(store, t.TempDir(), time.Local),
		Bus:      bus,
	})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/notifications?topics=reminder-due", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rr, req)
		close(done)
	}()

	// Wait for the subscription before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	bus.Publish(notify.TopicReminderDue, map[string]string{"id": "r1"})
	bus.Publish(notify.TopicMouseMove, map[string]int{"x": 1}) // filtered out

	// Give the handler a moment to drain, then close the stream.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rr.Body.String()
	if !strings.Contains(body, "event: reminder-due") {
		t.Errorf("stream missing reminder-due event: %q", body)
	}
	if strings.Contains(body, "global-mouse-move") {
		t.Errorf("stream leaked filtered topic: %q", body)
	}
}
