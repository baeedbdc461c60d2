package device

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/openbias/biasd/internal/codec"
	"github.com/openbias/biasd/internal/params"
)

// MockFailResult is the result code the mock reports for failed entries.
const MockFailResult = 20

// MockRequest records one request received by a MockDevice.
type MockRequest struct {
	Action string
	Paths  []string
	Data   map[string]codec.Data
}

// MockDevice is an in-memory amplifier speaking the wire protocol. It backs
// --mock mode and the package tests.
type MockDevice struct {
	mu        sync.Mutex
	values    map[string]codec.Data
	failRead  map[string]bool
	failWrite map[string]bool
	omit      map[string]bool
	reverse   bool
	status    int
	garbage   bool
	delay     time.Duration
	requests  []MockRequest
}

// NewMockDevice returns an empty mock device.
func NewMockDevice() *MockDevice {
	return &MockDevice{
		values:    make(map[string]codec.Data),
		failRead:  make(map[string]bool),
		failWrite: make(map[string]bool),
		omit:      make(map[string]bool),
	}
}

// Seed stores every value in vals. Unencodable values are skipped.
func (m *MockDevice) Seed(vals map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p, v := range vals {
		d, err := codec.Encode(v)
		if err != nil {
			slog.Warn("device: mock seed skipped", "path", p, "err", err)
			continue
		}
		m.values[p] = d
	}
}

// SeedIdentity stores the device information paths.
func (m *MockDevice) SeedIdentity(model, serial, manufacturer string) {
	m.Seed(map[string]any{
		params.ModelNamePath:    model,
		params.ModelSerialPath:  serial,
		params.ManufacturerPath: manufacturer,
	})
}

// Set stores a single value.
func (m *MockDevice) Set(path string, v any) {
	m.Seed(map[string]any{path: v})
}

// Get returns the decoded value stored at path.
func (m *MockDevice) Get(path string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.values[path]
	if !ok {
		return nil, false
	}
	return codec.Decode(d)
}

// Data returns the raw wire data stored at path.
func (m *MockDevice) Data(path string) (codec.Data, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.values[path]
	return d, ok
}

// SetFailRead makes reads of path report failure.
func (m *MockDevice) SetFailRead(path string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead[path] = fail
}

// SetFailWrite makes writes of path report failure.
func (m *MockDevice) SetFailWrite(path string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite[path] = fail
}

// SetOmit drops path from responses entirely.
func (m *MockDevice) SetOmit(path string, omit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.omit[path] = omit
}

// SetReverse answers with the value list in reverse request order.
func (m *MockDevice) SetReverse(reverse bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reverse = reverse
}

// SetStatus forces an HTTP status for every response; zero restores normal
// operation.
func (m *MockDevice) SetStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = code
}

// SetGarbage makes the device answer with a body that is not JSON.
func (m *MockDevice) SetGarbage(garbage bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.garbage = garbage
}

// SetDelay delays every response.
func (m *MockDevice) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Requests returns the requests received so far.
func (m *MockDevice) Requests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastWrite returns the most recent WRITE request.
func (m *MockDevice) LastWrite() (MockRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.requests) - 1; i >= 0; i-- {
		if m.requests[i].Action == actionWrite {
			return m.requests[i], true
		}
	}
	return MockRequest{}, false
}

// ResetRequests clears the request log.
func (m *MockDevice) ResetRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// ServeHTTP implements the parameter endpoint.
func (m *MockDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	var req envelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payload == nil || req.Payload.Action == nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != 0 {
		http.Error(w, http.StatusText(m.status), m.status)
		return
	}
	if m.garbage {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("<html>not json"))
		return
	}

	act := req.Payload.Action
	rec := MockRequest{Action: act.Type, Data: make(map[string]codec.Data)}
	out := make([]wireValue, 0, len(act.Values))
	for _, v := range act.Values {
		rec.Paths = append(rec.Paths, v.ID)
		if v.Data != nil {
			rec.Data[v.ID] = *v.Data
		}
		if m.omit[v.ID] {
			continue
		}
		out = append(out, m.answer(act.Type, v))
	}
	m.requests = append(m.requests, rec)

	if m.reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope{
		ClientID: req.ClientID,
		Payload: &payload{
			Type:   payloadAction,
			Action: &wireAction{Type: act.Type, Values: out},
		},
	})
}

// answer must be called with m.mu held.
func (m *MockDevice) answer(action string, v wireValue) wireValue {
	ok, fail := codec.ResultSuccess, MockFailResult
	resp := wireValue{ID: v.ID, Single: v.Single}
	switch action {
	case actionRead:
		d, found := m.values[v.ID]
		if !found || m.failRead[v.ID] {
			resp.Result = &fail
			return resp
		}
		resp.Result = &ok
		resp.Data = &d
	case actionWrite:
		if v.Data == nil || m.failWrite[v.ID] {
			resp.Result = &fail
			return resp
		}
		m.values[v.ID] = *v.Data
		resp.Result = &ok
	default:
		resp.Result = &fail
	}
	return resp
}
