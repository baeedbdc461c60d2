// Package api implements the HTTP REST API of biasd.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/openbias/biasd/internal/controller"
	"github.com/openbias/biasd/internal/events"
	"github.com/openbias/biasd/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl    Controller
	events  EventBus
	backups Backups
}

// Controller is the interface the handlers use to read and change the amplifier.
type Controller interface {
	State() models.State
	Info() models.Info
	Refresh(ctx context.Context) (models.State, error)
	SetOutput(ctx context.Context, ch int, upd models.OutputUpdate) (models.State, *models.AppError)
	SetStandby(ctx context.Context, standby bool) (models.State, *models.AppError)
	GetPresets() []models.Preset
	GetPreset(id int) (models.Preset, *models.AppError)
	CreatePreset(ctx context.Context, req models.PresetCreate) (models.Preset, *models.AppError)
	UpdatePreset(ctx context.Context, id int, upd models.PresetUpdate) (models.Preset, *models.AppError)
	DeletePreset(id int) *models.AppError
	LoadPreset(ctx context.Context, id int) (models.State, *models.AppError)
}

// EventBus is the interface for subscribing to state change events.
type EventBus interface {
	Subscribe(id string) <-chan events.Event
	Unsubscribe(id string)
}

// Backups runs an on-demand backup of the preset document.
type Backups interface {
	RunBackupNow() (string, error)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as a JSON AppError response.
func writeError(w http.ResponseWriter, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = controller.AsAppError(err)
	}
	writeJSON(w, appErr.Status, appErr)
}

// decodeBody decodes the JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.ErrBadRequest("invalid JSON: " + err.Error())
	}
	return nil
}

// intParam reads an integer path parameter by name.
func intParam(r *http.Request, name string) (int, error) {
	s := chi.URLParam(r, name)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, models.ErrBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}
