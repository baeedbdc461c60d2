package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/openbias/biasd/internal/events"
	"github.com/openbias/biasd/internal/models"
)

// Measurement names.
const (
	MeasurementOutput = "bias_output"
	MeasurementDevice = "bias_device"
)

// PointWriter accepts points for export.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Points converts a state into one device point plus one point per output.
func Points(s models.State, at time.Time) []*write.Point {
	tags := map[string]string{"serial": s.Info.Device.Serial, "host": s.Info.Host}

	device := map[string]any{"online": s.Online}
	if s.Standby != nil {
		device["standby"] = *s.Standby
	}
	points := []*write.Point{write.NewPoint(MeasurementDevice, tags, device, at)}
	if !s.Online {
		return points
	}

	for _, o := range s.Outputs {
		ot := map[string]string{"channel": strconv.Itoa(o.Channel)}
		for k, v := range tags {
			ot[k] = v
		}
		points = append(points, write.NewPoint(MeasurementOutput, ot, map[string]any{
			"gain":    o.Gain,
			"gain_db": o.GainDB,
			"mute":    o.Mute,
		}, at))
	}
	return points
}

// Exporter writes the points of every state and offline event.
type Exporter struct {
	w   PointWriter
	bus *events.Bus
	now func() time.Time
}

// NewExporter creates an Exporter.
func NewExporter(w PointWriter, bus *events.Bus) *Exporter {
	return &Exporter{w: w, bus: bus, now: time.Now}
}

// Run exports until ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) {
	const id = "metrics"
	ch := e.bus.Subscribe(id)
	defer e.bus.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Kind == events.KindPresets {
				continue
			}
			for _, p := range Points(ev.State, e.now()) {
				e.w.WritePoint(p)
			}
		}
	}
}
