package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openbias/biasd/internal/events"
	"github.com/openbias/biasd/internal/models"
)

const commandTimeout = 30 * time.Second

// Publisher is the publishing side of a broker connection.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Commander executes commands received from the broker.
type Commander interface {
	Refresh(ctx context.Context) (models.State, error)
	LoadPreset(ctx context.Context, id int) (models.State, *models.AppError)
	SetOutput(ctx context.Context, ch int, upd models.OutputUpdate) (models.State, *models.AppError)
}

// Bridge mirrors bus events to retained topics and runs commands.
type Bridge struct {
	pub    Publisher
	ctrl   Commander
	bus    *events.Bus
	topics Topics

	wg sync.WaitGroup
}

// NewBridge creates a Bridge.
func NewBridge(pub Publisher, ctrl Commander, bus *events.Bus, topics Topics) *Bridge {
	return &Bridge{pub: pub, ctrl: ctrl, bus: bus, topics: topics}
}

// Run publishes every bus event until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	const id = "mqtt-bridge"
	ch := b.bus.Subscribe(id)
	defer b.bus.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := b.publish(ev); err != nil {
				slog.Warn("mqtt: publish failed", "kind", ev.Kind, "err", err)
			}
		}
	}
}

func (b *Bridge) publish(ev events.Event) error {
	switch ev.Kind {
	case events.KindPresets:
		data, err := json.Marshal(ev.State.Presets)
		if err != nil {
			return err
		}
		return b.pub.Publish(b.topics.Presets(), data, true)
	default:
		data, err := json.Marshal(ev.State)
		if err != nil {
			return err
		}
		return b.pub.Publish(b.topics.State(), data, true)
	}
}

// Dispatch parses a command message and runs it on its own goroutine, so the
// paho callback returns at once. Only parse errors are returned; execution
// errors are logged.
func (b *Bridge) Dispatch(topic string, payload []byte) error {
	cmd, err := b.topics.ParseCommand(topic, payload)
	if err != nil {
		return err
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.execute(cmd); err != nil {
			slog.Warn("mqtt: command failed", "kind", cmd.Kind, "err", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched command has finished.
func (b *Bridge) Wait() { b.wg.Wait() }

// HandleCommand parses and executes one command message synchronously.
func (b *Bridge) HandleCommand(topic string, payload []byte) error {
	cmd, err := b.topics.ParseCommand(topic, payload)
	if err != nil {
		return err
	}
	return b.execute(cmd)
}

func (b *Bridge) execute(cmd Command) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	var appErr *models.AppError
	switch cmd.Kind {
	case CommandRefresh:
		_, err = b.ctrl.Refresh(ctx)
	case CommandLoadPreset:
		_, appErr = b.ctrl.LoadPreset(ctx, cmd.PresetID)
	case CommandGainDB:
		_, appErr = b.ctrl.SetOutput(ctx, cmd.Channel, models.OutputUpdate{GainDB: models.Ptr(cmd.GainDB)})
	case CommandMute:
		_, appErr = b.ctrl.SetOutput(ctx, cmd.Channel, models.OutputUpdate{Mute: models.Ptr(cmd.Mute)})
	}
	if appErr != nil {
		return fmt.Errorf("%s: %w", cmd.Kind, appErr)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Kind, err)
	}
	slog.Debug("mqtt: command executed", "kind", cmd.Kind)
	return nil
}
