// Package identity records which amplifier this daemon is paired with and
// reports the daemon's own version and host name.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/openbias/biasd/internal/models"
)

// DefaultVersion is the fallback version string when metadata.json is not found.
const DefaultVersion = "0.1.0"

// RecordFileName is the pairing record inside the config directory.
const RecordFileName = "device.json"

// ErrSerialMismatch means a different amplifier answered at the paired host.
var ErrSerialMismatch = errors.New("identity: device serial does not match pairing")

// Record is the persisted pairing.
type Record struct {
	Serial       string    `json:"serial"`
	Model        string    `json:"model"`
	Manufacturer string    `json:"manufacturer"`
	Host         string    `json:"host"`
	PairedAt     time.Time `json:"paired_at"`
}

// Device returns the device info of the record.
func (r Record) Device() models.DeviceInfo {
	return models.DeviceInfo{Model: r.Model, Serial: r.Serial, Manufacturer: r.Manufacturer}
}

// Load reads the pairing record from dir. ok is false when none exists.
func Load(dir string) (rec Record, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(dir, RecordFileName))
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("identity: reading record: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("identity: parsing record: %w", err)
	}
	return rec, true, nil
}

// Save writes the pairing record to dir atomically.
func Save(dir string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, RecordFileName)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Pair checks info against the record in dir. The first device seen is
// recorded; later a different serial fails with ErrSerialMismatch unless
// repair is set, in which case the record is replaced. A device reporting no
// usable serial is accepted without being recorded.
func Pair(dir, host string, info models.DeviceInfo, repair bool) (Record, error) {
	rec, ok, err := Load(dir)
	if err != nil && !repair {
		return Record{}, err
	}
	if info.Serial == "" || info.Serial == "Unknown" {
		slog.Warn("identity: device reported no serial, pairing skipped", "host", host)
		return Record{Host: host, Model: info.Model, Manufacturer: info.Manufacturer}, nil
	}

	if ok && rec.Serial == info.Serial {
		if rec.Host != host || rec.Model != info.Model {
			rec.Host = host
			rec.Model = info.Model
			if err := Save(dir, rec); err != nil {
				return Record{}, err
			}
		}
		return rec, nil
	}
	if ok && !repair {
		return rec, fmt.Errorf("%w: paired %s, found %s at %s", ErrSerialMismatch, rec.Serial, info.Serial, host)
	}

	next := Record{
		Serial:       info.Serial,
		Model:        info.Model,
		Manufacturer: info.Manufacturer,
		Host:         host,
		PairedAt:     time.Now().UTC(),
	}
	if err := Save(dir, next); err != nil {
		return Record{}, err
	}
	slog.Info("identity: paired", "serial", next.Serial, "model", next.Model, "host", host)
	return next, nil
}

// GetHostname returns the system hostname.
func GetHostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "biasd"
	}
	return h
}

// GetVersionFromDir reads the version from metadata.json in dir, falling
// back to DefaultVersion.
func GetVersionFromDir(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return DefaultVersion
	}

	var meta struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &meta); err != nil || meta.Version == "" {
		return DefaultVersion
	}
	return meta.Version
}
