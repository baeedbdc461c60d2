package api

import (
	"net/http"

	"github.com/openbias/biasd/internal/models"
)

func (h *Handlers) setOutput(w http.ResponseWriter, r *http.Request) {
	ch, err := intParam(r, "ch")
	if err != nil {
		writeError(w, err)
		return
	}
	var upd models.OutputUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	state, appErr := h.ctrl.SetOutput(r.Context(), ch, upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) setStandby(w http.ResponseWriter, r *http.Request) {
	var upd models.StandbyUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	if upd.Standby == nil {
		writeError(w, models.ErrBadRequest("standby is required"))
		return
	}
	state, appErr := h.ctrl.SetStandby(r.Context(), *upd.Standby)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
