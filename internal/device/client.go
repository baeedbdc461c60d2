// Package device implements the HTTP client for the amplifier's parameter
// endpoint: batched reads and writes of typed values addressed by path.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/openbias/biasd/internal/codec"
	"github.com/openbias/biasd/internal/models"
	"github.com/openbias/biasd/internal/params"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultPort    = 80
	DefaultTimeout = 5 * time.Second
	EndpointPath   = "/am"

	maxResponseSize = 8 << 20
)

// Device info fallbacks for paths the firmware does not answer.
const (
	UnknownModel        = "Unknown"
	UnknownSerial       = "Unknown"
	DefaultManufacturer = "Powersoft"
)

// Config configures a Client.
type Config struct {
	Host string
	Port int
	// URL overrides Host and Port with a full endpoint URL.
	URL      string
	Timeout  time.Duration
	ClientID string
	// RateLimit caps requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	// SoftFailPaths are paths whose write failures are reported as soft.
	// Nil means the standby path only.
	SoftFailPaths []string
	// HTTPClient replaces the client built by Connect.
	HTTPClient *http.Client
}

// NewClientID returns a client id unique to this process.
func NewClientID() string {
	return "biasd-" + uuid.New().String()[:8]
}

// Client talks to one amplifier. It keeps at most one request in flight.
type Client struct {
	cfg     Config
	url     string
	limiter *rate.Limiter
	soft    map[string]bool

	mu sync.Mutex // serializes requests and guards hc
	hc *http.Client
}

// New creates a Client. No connection is made until the first request or an
// explicit Connect.
func New(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ClientID == "" {
		cfg.ClientID = NewClientID()
	}
	if cfg.SoftFailPaths == nil {
		cfg.SoftFailPaths = []string{params.StandbyPath}
	}

	c := &Client{
		cfg:  cfg,
		url:  cfg.URL,
		soft: make(map[string]bool, len(cfg.SoftFailPaths)),
	}
	if c.url == "" {
		c.url = "http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + EndpointPath
	}
	for _, p := range cfg.SoftFailPaths {
		c.soft[p] = true
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// URL returns the endpoint URL.
func (c *Client) URL() string { return c.url }

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.cfg.Timeout }

// Connect prepares the HTTP connection pool. It is idempotent.
func (c *Client) Connect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked()
	return nil
}

func (c *Client) connectLocked() {
	if c.hc != nil {
		return
	}
	if c.cfg.HTTPClient != nil {
		c.hc = c.cfg.HTTPClient
		return
	}
	c.hc = &http.Client{
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: c.cfg.Timeout}).DialContext,
			MaxIdleConnsPerHost: 1,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	slog.Debug("device: connected", "url", c.url)
}

// Disconnect releases idle connections. The next request reconnects.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hc == nil {
		return
	}
	c.hc.CloseIdleConnections()
	c.hc = nil
	slog.Debug("device: disconnected", "url", c.url)
}

// ReadValues reads paths in one batch. Entries the device does not report
// as successful are left out of the result; callers must treat a missing key
// as unknown.
func (c *Client) ReadValues(ctx context.Context, paths []string) (map[string]any, error) {
	out := make(map[string]any, len(paths))
	if len(paths) == 0 {
		return out, nil
	}

	requested := make(map[string]bool, len(paths))
	values := make([]wireValue, 0, len(paths))
	for _, p := range paths {
		if requested[p] {
			continue
		}
		requested[p] = true
		values = append(values, wireValue{ID: p, Single: true})
	}

	resp, err := c.do(ctx, actionRead, values)
	if err != nil {
		return nil, err
	}

	for _, v := range resp {
		if !requested[v.ID] {
			slog.Debug("device: unrequested path in response", "path", v.ID)
			continue
		}
		if v.Result == nil || *v.Result != codec.ResultSuccess {
			slog.Warn("device: read failed", "path", v.ID, "result", resultString(v.Result))
			continue
		}
		if v.Data == nil {
			slog.Warn("device: read returned no data", "path", v.ID)
			continue
		}
		if val, ok := codec.Decode(*v.Data); ok {
			out[v.ID] = val
		}
	}
	return out, nil
}

// WriteEntry is one value to write.
type WriteEntry struct {
	Path  string
	Value any
}

// WriteResult is the per-path outcome of a write batch. A batch is not
// atomic: some paths may succeed while others fail.
type WriteResult struct {
	// Results holds the device's result code per path it answered.
	Results map[string]int
	// Failed lists paths that did not succeed, excluding soft paths.
	Failed []string
	// Soft lists soft paths (standby) that did not succeed.
	Soft []string
}

// OK reports whether every non-soft path succeeded.
func (r *WriteResult) OK() bool { return len(r.Failed) == 0 }

// Succeeded reports whether path was written successfully.
func (r *WriteResult) Succeeded(path string) bool {
	code, ok := r.Results[path]
	return ok && code == codec.ResultSuccess
}

// WriteValues writes entries in one batch. Values are encoded before any I/O;
// an unencodable value fails the whole call with codec.ErrUnsupportedType.
func (c *Client) WriteValues(ctx context.Context, entries []WriteEntry) (*WriteResult, error) {
	res := &WriteResult{Results: make(map[string]int, len(entries))}
	if len(entries) == 0 {
		return res, nil
	}

	values := make([]wireValue, 0, len(entries))
	for _, e := range entries {
		d, err := codec.Encode(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Path, err)
		}
		values = append(values, wireValue{ID: e.Path, Single: true, Data: &d})
	}

	resp, err := c.do(ctx, actionWrite, values)
	if err != nil {
		return nil, err
	}

	for _, v := range resp {
		if v.Result != nil {
			res.Results[v.ID] = *v.Result
		}
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Path] {
			continue
		}
		seen[e.Path] = true
		if res.Succeeded(e.Path) {
			continue
		}
		if c.soft[e.Path] {
			slog.Warn("device: soft write failure", "path", e.Path, "result", c.resultFor(res, e.Path))
			res.Soft = append(res.Soft, e.Path)
			continue
		}
		slog.Warn("device: write failed", "path", e.Path, "result", c.resultFor(res, e.Path))
		res.Failed = append(res.Failed, e.Path)
	}
	sort.Strings(res.Failed)
	sort.Strings(res.Soft)
	return res, nil
}

func (c *Client) resultFor(res *WriteResult, path string) string {
	if code, ok := res.Results[path]; ok {
		return strconv.Itoa(code)
	}
	return "missing"
}

// WriteValue writes one value and reports whether the device accepted it.
func (c *Client) WriteValue(ctx context.Context, path string, value any) (bool, error) {
	res, err := c.WriteValues(ctx, []WriteEntry{{Path: path, Value: value}})
	if err != nil {
		return false, err
	}
	return res.Succeeded(path), nil
}

// GetDeviceInfo reads the model, serial and manufacturer.
func (c *Client) GetDeviceInfo(ctx context.Context) (models.DeviceInfo, error) {
	vals, err := c.ReadValues(ctx, params.DeviceInfoPaths)
	if err != nil {
		return models.DeviceInfo{}, err
	}
	return models.DeviceInfo{
		Model:        stringOr(vals[params.ModelNamePath], UnknownModel),
		Serial:       stringOr(vals[params.ModelSerialPath], UnknownSerial),
		Manufacturer: stringOr(vals[params.ManufacturerPath], DefaultManufacturer),
	}, nil
}

func stringOr(v any, def string) string {
	if s, ok := codec.AsString(v); ok && s != "" {
		return s
	}
	return def
}

// do sends one action and returns the response value list.
func (c *Client) do(ctx context.Context, action string, values []wireValue) ([]wireValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: waiting for rate limiter: %w", ErrTimeout, err)
		}
	}

	body, err := json.Marshal(envelope{
		ClientID: c.cfg.ClientID,
		Payload: &payload{
			Type:   payloadAction,
			Action: &wireAction{Type: action, Values: values},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("device: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrTransport, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if env.Payload == nil || env.Payload.Action == nil {
		return nil, fmt.Errorf("%w: missing payload.action", ErrProtocol)
	}

	slog.Debug("device: request done",
		"action", action,
		"paths", len(values),
		"returned", len(env.Payload.Action.Values),
		"elapsed", time.Since(start),
	)
	return env.Payload.Action.Values, nil
}

func classify(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func resultString(r *int) string {
	if r == nil {
		return "missing"
	}
	return strconv.Itoa(*r)
}
