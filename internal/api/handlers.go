// Package api exposes the local HTTP surface the shell and CLI talk
// to. Everything binds to loopback; there is no authentication layer.
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ajakab/perch/internal/export"
	"github.com/ajakab/perch/internal/storage"
)

const maxRequestBodySize = 10 << 20 // 10MB, dropped file payloads included

// DailyExporter abstracts the export renderer for the API layer.
type DailyExporter interface {
	GenerateDaily(dateKey, format string) (string, error)
}

type AppDeps struct {
	Store    *storage.Store
	Exporter DailyExporter
	Bus      NotificationBus // optional; if nil, /notifications is a 404
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Post("/events/drop", handleCreateDropEvent(deps))
	r.Post("/events/text", handleCreateTextEvent(deps))
	r.Get("/events", handleListEvents(deps))
	r.Get("/events/{id}", handleGetEvent(deps))
	r.Delete("/events/{id}", handleDeleteEvent(deps))
	r.Patch("/events/{id}/note", handleUpdateNote(deps))
	r.Post("/events/{id}/reminders", handleCreateReminder(deps))

	r.Get("/reminders", handleListReminders(deps))
	r.Post("/reminders/{id}/snooze", handleSnoozeReminder(deps))
	r.Post("/reminders/{id}/dismiss", handleDismissReminder(deps))

	r.Get("/settings", handleListSettings(deps))
	r.Get("/settings/{key}", handleGetSetting(deps))
	r.Put("/settings/{key}", handleSetSetting(deps))

	r.Get("/exports", handleListExports(deps))
	r.Post("/exports", handleGenerateExport(deps))

	r.Post("/files", handleSaveFile(deps))
	r.Get("/files/content", handleReadFile(deps))

	r.Post("/drops", handleInsertDropRecord(deps))
	r.Post("/drops/{id}/results", handleSaveMockResult(deps))

	if deps.Bus != nil {
		r.Get("/notifications", handleNotifications(deps.Bus))
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleCreateDropEvent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req storage.DropEventInput
		if !decodeBody(w, r, &req) {
			return
		}

		detail, err := deps.Store.CreateDropEvent(req)
		if err != nil {
			storeError(w, "create drop event", err)
			return
		}
		writeJSON(w, http.StatusCreated, detail)
	}
}

func handleCreateTextEvent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req storage.TextEventInput
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Note == "" && req.TextContent == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "note or textContent is required")
			return
		}

		detail, err := deps.Store.CreateTextEvent(req)
		if err != nil {
			storeError(w, "create text event", err)
			return
		}
		writeJSON(w, http.StatusCreated, detail)
	}
}

func handleListEvents(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := storage.ListQuery{
			StartDate: parseInt64Param(r, "startDate"),
			EndDate:   parseInt64Param(r, "endDate"),
			Page:      parseIntParam(r, "page", 0, 0),
			PageSize:  parseIntParam(r, "pageSize", 0, 500),
		}

		details, err := deps.Store.ListEvents(q)
		if err != nil {
			storeError(w, "list events", err)
			return
		}
		if details == nil {
			details = []storage.EventDetail{}
		}
		writeJSON(w, http.StatusOK, details)
	}
}

func handleGetEvent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := deps.Store.GetEventDetail(chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, "get event", err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func handleDeleteEvent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DeleteEvent(chi.URLParam(r, "id")); err != nil {
			storeError(w, "delete event", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleUpdateNote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Note string `json:"note"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		if err := deps.Store.UpdateEventNote(chi.URLParam(r, "id"), req.Note); err != nil {
			storeError(w, "update note", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func handleCreateReminder(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RemindAt int64  `json:"remindAt"`
			Message  string `json:"message"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.RemindAt <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "remindAt is required")
			return
		}

		rem, err := deps.Store.CreateReminder(chi.URLParam(r, "id"), req.RemindAt, req.Message)
		if err != nil {
			storeError(w, "create reminder", err)
			return
		}
		writeJSON(w, http.StatusCreated, rem)
	}
}

func handleListReminders(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reminders, err := deps.Store.ListPendingReminders()
		if err != nil {
			storeError(w, "list reminders", err)
			return
		}
		if reminders == nil {
			reminders = []storage.Reminder{}
		}
		writeJSON(w, http.StatusOK, reminders)
	}
}

func handleSnoozeReminder(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Minutes int `json:"minutes"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Minutes <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "minutes must be positive")
			return
		}

		if err := deps.Store.SnoozeReminder(chi.URLParam(r, "id"), int64(req.Minutes)); err != nil {
			storeError(w, "snooze reminder", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "snoozed"})
	}
}

func handleDismissReminder(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.DismissReminder(chi.URLParam(r, "id")); err != nil {
			storeError(w, "dismiss reminder", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
	}
}

func handleListSettings(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := deps.Store.ListSettings()
		if err != nil {
			storeError(w, "list settings", err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

func handleGetSetting(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		value, err := deps.Store.GetSetting(key)
		if err != nil {
			storeError(w, "get setting", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
	}
}

func handleSetSetting(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Value string `json:"value"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		if err := deps.Store.SetSetting(chi.URLParam(r, "key"), req.Value); err != nil {
			storeError(w, "set setting", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func handleListExports(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exports, err := deps.Store.ListExports()
		if err != nil {
			storeError(w, "list exports", err)
			return
		}
		if exports == nil {
			exports = []storage.DailyExport{}
		}
		writeJSON(w, http.StatusOK, exports)
	}
}

func handleGenerateExport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DateKey string `json:"dateKey"`
			Format  string `json:"format"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Format == "" {
			req.Format = "md"
		}

		path, err := deps.Exporter.GenerateDaily(req.DateKey, req.Format)
		if err != nil {
			storeError(w, "generate export", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"path": path})
	}
}

func handleSaveFile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FileName string `json:"fileName"`
			Content  string `json:"content"` // base64
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.FileName == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "fileName is required")
			return
		}
		content, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
			return
		}

		path, err := deps.Store.SaveDroppedFile(req.FileName, content)
		if err != nil {
			storeError(w, "save file", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"path": path})
	}
}

func handleReadFile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "path is required")
			return
		}

		content, err := storage.ReadFileContent(path)
		if err != nil {
			storeError(w, "read file", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"content": content})
	}
}

func handleInsertDropRecord(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Path == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "path is required")
			return
		}

		rec, err := deps.Store.InsertDropRecord(req.Path)
		if err != nil {
			storeError(w, "insert drop record", err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func handleSaveMockResult(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid record id")
			return
		}
		var req struct {
			Kind    string `json:"kind"`
			Content string `json:"content"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		if err := deps.Store.SaveMockResult(id, req.Kind, req.Content); err != nil {
			storeError(w, "save result", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

// storeError maps storage and export errors onto HTTP statuses.
func storeError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%s: not found", action)
	case errors.Is(err, storage.ErrEmptyInput),
		errors.Is(err, storage.ErrInvalidKind),
		errors.Is(err, export.ErrInvalidDate),
		errors.Is(err, export.ErrInvalidFormat):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%s: %v", action, err)
	case errors.Is(err, storage.ErrFileTooLarge):
		httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "%s: %v", action, err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "failed to %s: %v", action, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func parseInt64Param(r *http.Request, key string) int64 {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
