// Package zeroconf announces the biasd REST API as an mDNS/DNS-SD service so
// control panels can find it on the LAN.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"

	"github.com/openbias/biasd/internal/models"
)

// ServiceType is the DNS-SD service type biasd registers.
const ServiceType = "_biasd._tcp"

// Service manages mDNS service registration.
type Service struct {
	name string // instance name, usually the hostname
	port int
	txt  []string
}

// New creates a Service advertising port under the instance name. The TXT
// records describe info.
func New(name string, port int, info models.Info) *Service {
	return &Service{name: name, port: port, txt: TXT(info)}
}

// TXT returns the TXT records for info. Device fields are omitted until the
// amplifier has been identified.
func TXT(info models.Info) []string {
	txt := []string{
		"version=" + info.Version,
		"schema=" + info.Schema,
		"path=/api",
	}
	if info.Device.Serial != "" {
		txt = append(txt, "serial="+info.Device.Serial)
	}
	if info.Device.Model != "" {
		txt = append(txt, "model="+info.Device.Model)
	}
	return txt
}

// Records returns the TXT records the service registers.
func (s *Service) Records() []string {
	out := make([]string, len(s.txt))
	copy(out, s.txt)
	return out
}

// Start registers the service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	server, err := zeroconf.Register(s.name, ServiceType, "local.", s.port, s.txt, nil)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service", "name", s.name, "type", ServiceType, "port", s.port, "txt", s.txt)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
