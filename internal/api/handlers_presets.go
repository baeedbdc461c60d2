package api

import (
	"net/http"

	"github.com/openbias/biasd/internal/models"
)

func (h *Handlers) getPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": h.ctrl.GetPresets()})
}

func (h *Handlers) getPreset(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	p, appErr := h.ctrl.GetPreset(id)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) createPreset(w http.ResponseWriter, r *http.Request) {
	var req models.PresetCreate
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, appErr := h.ctrl.CreatePreset(r.Context(), req)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) setPreset(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	var upd models.PresetUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	p, appErr := h.ctrl.UpdatePreset(r.Context(), id, upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) deletePreset(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	if appErr := h.ctrl.DeletePreset(id); appErr != nil {
		writeError(w, appErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) loadPreset(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	state, appErr := h.ctrl.LoadPreset(r.Context(), id)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
