package metrics

import "errors"

var (
	// ErrDisabled is returned by Connect when export is switched off.
	ErrDisabled = errors.New("metrics: influxdb export disabled")

	// ErrConnectionFailed is returned when the server cannot be reached.
	ErrConnectionFailed = errors.New("metrics: influxdb connection failed")
)
