package controller

import (
	"errors"

	"github.com/openbias/biasd/internal/device"
	"github.com/openbias/biasd/internal/engine"
	"github.com/openbias/biasd/internal/identity"
	"github.com/openbias/biasd/internal/models"
	"github.com/openbias/biasd/internal/presets"
)

// AsAppError maps errors from the engine, transport and preset store to the
// API error shape. Failed write paths are carried through.
func AsAppError(err error) *models.AppError {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var partial *engine.PartialApplyError
	if errors.As(err, &partial) {
		return models.ErrBadGateway(err.Error(), partial.Paths)
	}

	switch {
	case errors.Is(err, device.ErrTimeout):
		return models.ErrUnavailable(err.Error())
	case errors.Is(err, device.ErrTransport), errors.Is(err, device.ErrProtocol):
		return models.ErrBadGateway(err.Error(), nil)
	case errors.Is(err, models.ErrInvalidScene),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, engine.ErrUnknownKey),
		errors.Is(err, presets.ErrEmptyName):
		return models.ErrBadRequest(err.Error())
	case errors.Is(err, presets.ErrNotFound):
		return models.ErrNotFound(err.Error())
	case errors.Is(err, presets.ErrDuplicateID), errors.Is(err, identity.ErrSerialMismatch):
		return models.ErrConflict(err.Error())
	}
	return models.ErrInternal(err.Error())
}

func isPartial(err error) bool {
	return errors.Is(err, engine.ErrPartialApply)
}
