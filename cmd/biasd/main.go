// Command biasd is the Powersoft Bias amplifier daemon. It keeps a live view
// of one amplifier, stores presets and serves them over REST, SSE and MQTT.
// Run with --mock to use a simulated amplifier.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/openbias/biasd/internal/api"
	"github.com/openbias/biasd/internal/auth"
	"github.com/openbias/biasd/internal/config"
	"github.com/openbias/biasd/internal/controller"
	"github.com/openbias/biasd/internal/device"
	"github.com/openbias/biasd/internal/engine"
	"github.com/openbias/biasd/internal/events"
	"github.com/openbias/biasd/internal/identity"
	"github.com/openbias/biasd/internal/logging"
	"github.com/openbias/biasd/internal/maintenance"
	"github.com/openbias/biasd/internal/metrics"
	"github.com/openbias/biasd/internal/models"
	"github.com/openbias/biasd/internal/mqtt"
	"github.com/openbias/biasd/internal/params"
	"github.com/openbias/biasd/internal/presets"
	"github.com/openbias/biasd/internal/zeroconf"
)

const identifyTimeout = 10 * time.Second

func main() {
	var (
		mock   = flag.Bool("mock", false, "use a simulated amplifier")
		addr   = flag.String("addr", "", "HTTP listen address (overrides api.addr)")
		cfgDir = flag.String("config-dir", "", "config directory (default: ~/.config/biasd)")
		debug  = flag.Bool("debug", false, "enable debug logging")
		repair = flag.Bool("repair", false, "pair with the amplifier found even if another one was paired")
	)
	flag.Parse()

	if err := run(*cfgDir, *addr, *mock, *debug, *repair); err != nil {
		slog.Error("biasd failed", "err", err)
		os.Exit(1)
	}
}

func run(cfgDir, addr string, mock, debug, repair bool) error {
	if cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgDir = filepath.Join(home, ".config", "biasd")
	}
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", cfgDir, err)
	}

	settings, err := config.LoadSettings(cfgDir)
	if err != nil {
		return err
	}
	if debug {
		settings.Logging.Level = "debug"
	}
	if addr != "" {
		settings.API.Addr = addr
	}
	version := identity.GetVersionFromDir(cfgDir)
	slog.SetDefault(logging.New(settings.Logging, version))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Preset store
	blobs, closer, err := config.OpenStore(settings.Store, cfgDir)
	if err != nil {
		return fmt.Errorf("opening preset store: %w", err)
	}
	defer closer.Close()
	gen, err := presets.GenerationByName(settings.Store.Generation)
	if err != nil {
		return err
	}
	store := presets.NewStore(blobs, settings.Store.PresetKey(), gen)
	if err := store.Load(); err != nil {
		return fmt.Errorf("loading presets: %w", err)
	}
	slog.Info("presets loaded", "store", blobs.Path(), "key", store.Key(), "count", store.GetSceneCount())

	// Amplifier
	devCfg := device.Config{
		Host:      settings.Device.Host,
		Port:      settings.Device.Port,
		Timeout:   settings.Device.RequestTimeout(),
		ClientID:  settings.Device.ClientID,
		RateLimit: settings.Device.RateLimit,
		Burst:     settings.Device.Burst,
	}
	if mock {
		amp := startMockDevice(settings.Device.Schema)
		defer amp.Close()
		devCfg.URL = amp.URL + device.EndpointPath
		slog.Info("using simulated amplifier", "url", devCfg.URL)
	} else if devCfg.Host == "" {
		return errors.New("device.host is required (or run with --mock)")
	}
	client := device.New(devCfg)
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to amplifier: %w", err)
	}
	defer client.Disconnect()

	schema, err := engine.Resolve(ctx, client, settings.Device.Schema)
	if err != nil {
		slog.Warn("schema probe failed, assuming extended", "err", err)
		schema = params.Extended
	}
	eng := engine.New(client, schema)
	slog.Info("parameter table ready", "schema", schema.Name, "paths", eng.Table().Len())

	gainRange := models.ExtendedGainRange
	if gen == presets.Legacy {
		gainRange = models.LegacyGainRange
	}

	bus := events.NewBus()
	host := settings.Device.Host
	if mock {
		host = "mock"
	}
	ctrl := controller.New(client, eng, store, bus, controller.Options{
		Version:   version,
		Host:      host,
		ConfigDir: cfgDir,
		Repair:    repair,
		GainRange: gainRange,
	})

	identCtx, identCancel := context.WithTimeout(ctx, identifyTimeout)
	if _, err := ctrl.Identify(identCtx); err != nil {
		slog.Warn("amplifier not identified at startup", "err", err)
	}
	identCancel()

	go ctrl.Run(ctx, settings.Device.ScanEvery())

	// Backups
	var backups api.Backups
	if settings.Backups.Enabled {
		maint := maintenance.New(store, config.Resolve(cfgDir, settings.Backups.Dir), settings.Backups.Keep)
		go maint.Start(ctx)
		backups = maint
	}

	// MQTT bridge
	if settings.MQTT.Enabled {
		node := ctrl.Info().Device.Serial
		if node == "" {
			node = settings.MQTT.ClientID
		}
		topics := mqtt.Topics{Prefix: settings.MQTT.TopicPrefix, Node: node}
		mc, err := mqtt.Connect(settings.MQTT, topics)
		if err != nil {
			slog.Warn("mqtt disabled: connection failed", "err", err)
		} else {
			defer mc.Close()
			bridge := mqtt.NewBridge(mc, ctrl, bus, topics)
			defer bridge.Wait()
			if err := mc.Subscribe(topics.Commands(), bridge.Dispatch); err != nil {
				slog.Warn("mqtt: command subscription failed", "err", err)
			}
			go bridge.Run(ctx)
			slog.Info("mqtt bridge running", "node", node)
		}
	}

	// InfluxDB export
	if settings.InfluxDB.Enabled {
		ic, err := metrics.Connect(settings.InfluxDB)
		if err != nil {
			slog.Warn("influxdb export disabled", "err", err)
		} else {
			defer ic.Close()
			go metrics.NewExporter(ic, bus).Run(ctx)
		}
	}

	// HTTP server
	authSvc, err := auth.NewService(cfgDir)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	defer authSvc.Close()

	if settings.API.Announce {
		zc := zeroconf.New(identity.GetHostname(), listenPort(settings.API.Addr), ctrl.Info())
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}

	timeouts := settings.API.Timeouts
	srv := &http.Server{
		Addr:         settings.API.Addr,
		Handler:      api.NewRouter(ctrl, authSvc, bus, backups),
		ReadTimeout:  time.Duration(timeouts.Read) * time.Second,
		WriteTimeout: 0, // SSE
		IdleTimeout:  time.Duration(timeouts.Idle) * time.Second,
	}
	go func() {
		slog.Info("biasd listening", "addr", srv.Addr, "mock", mock, "config", cfgDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), time.Duration(timeouts.Write)*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
	slog.Info("shutdown complete")
	return nil
}

// startMockDevice serves a simulated amplifier seeded with the defaults of
// the named schema.
func startMockDevice(schemaName string) *httptest.Server {
	schema, err := params.SchemaByName(schemaName)
	if err != nil {
		schema = params.Extended
	}
	amp := device.NewMockDevice()
	amp.Seed(engine.Defaults(params.NewTable(schema)))
	amp.SeedIdentity("Quattrocanali 8804 DSP+D", "MOCK0001", device.DefaultManufacturer)
	return httptest.NewServer(amp)
}

// listenPort extracts the port of a listen address, defaulting to 80.
func listenPort(addr string) int {
	port := 80
	if i := strings.LastIndex(addr, ":"); i >= 0 && i+1 < len(addr) {
		if p, err := strconv.Atoi(addr[i+1:]); err == nil {
			port = p
		}
	}
	return port
}
