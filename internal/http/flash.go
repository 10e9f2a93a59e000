package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"expenses/internal/core"
)

// NotificationType selects the toast style app.js shows.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// How long app.js keeps a toast on screen, in milliseconds.
var notificationDuration = map[NotificationType]int{
	NotificationSuccess: 3000,
	NotificationError:   5000,
}

// flash is the reply to a form post: a message fragment swapped into
// #flash, plus HX-Trigger events that keep the rest of the page in step.
type flash struct {
	status  int
	kind    NotificationType
	message string
	events  map[string]any
}

func flashSuccess(message string) *flash {
	return &flash{status: http.StatusOK, kind: NotificationSuccess, message: message, events: map[string]any{}}
}

func flashError(status int, message string) *flash {
	return &flash{status: status, kind: NotificationError, message: message, events: map[string]any{}}
}

// created announces a new record, clears the entry form and reloads the ledger.
func (f *flash) created(e core.Expense) *flash {
	f.events["expense:created"] = map[string]string{"id": e.ID, "month": e.Month()}
	f.events["form:reset"] = struct{}{}
	f.events["ledger:refresh"] = struct{}{}
	return f
}

// deleted announces a removed record and reloads the ledger.
func (f *flash) deleted(e core.Expense) *flash {
	f.events["expense:deleted"] = map[string]string{"id": e.ID}
	f.events["ledger:refresh"] = struct{}{}
	return f
}

func (f *flash) write(w http.ResponseWriter) {
	events := make(map[string]any, len(f.events)+1)
	for name, data := range f.events {
		events[name] = data
	}
	events["show-notification"] = map[string]any{
		"type":     string(f.kind),
		"message":  f.message,
		"duration": notificationDuration[f.kind],
	}
	if b, err := json.Marshal(events); err == nil {
		w.Header().Set("HX-Trigger", string(b))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(`<div class="` + string(f.kind) + `">` + template.HTMLEscapeString(f.message) + `</div>`))
}
