// Package presets stores named snapshots (scenes) in a versioned document
// persisted through a config.BlobStore.
package presets

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openbias/biasd/internal/config"
	"github.com/openbias/biasd/internal/models"
)

// DocumentVersion is the version written to the persisted document.
const DocumentVersion = 1

// Store errors.
var (
	ErrNotFound    = errors.New("preset not found")
	ErrDuplicateID = errors.New("preset id already in use")
	ErrEmptyName   = errors.New("preset name is empty")
)

// Generation selects the channel gain range presets are validated against.
type Generation struct {
	Name    string
	MaxGain float64
}

// Store generations.
var (
	Legacy   = Generation{Name: "legacy", MaxGain: 2.0}
	Extended = Generation{Name: "extended", MaxGain: 10.0}
)

// GenerationByName returns the named generation; "" means extended.
func GenerationByName(name string) (Generation, error) {
	switch name {
	case "", Extended.Name:
		return Extended, nil
	case Legacy.Name:
		return Legacy, nil
	}
	return Generation{}, fmt.Errorf("presets: unknown generation %q", name)
}

// document is the persisted layout.
type document struct {
	Version int             `json:"version"`
	Scenes  []models.Preset `json:"scenes"`
}

// Store is the preset collection. Every mutation is validated, persisted,
// and only then made visible; a failed save leaves the collection unchanged.
type Store struct {
	mu     sync.Mutex
	blobs  config.BlobStore
	key    string
	gen    Generation
	scenes []models.Preset
	nextID int
	loaded bool

	now func() time.Time
}

// NewStore returns a store persisting under key. Call Load before use.
func NewStore(blobs config.BlobStore, key string, gen Generation) *Store {
	return &Store{
		blobs:  blobs,
		key:    key,
		gen:    gen,
		nextID: 1,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = func() time.Time { return now().UTC() }
}

// Generation returns the store generation.
func (s *Store) Generation() Generation { return s.gen }

// Key returns the blob key.
func (s *Store) Key() string { return s.key }

// Load reads the collection. An absent blob yields an empty collection.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.blobs.LoadBlob(s.key)
	if err != nil {
		return fmt.Errorf("presets: load: %w", err)
	}
	s.scenes = nil
	s.nextID = 1
	s.loaded = true
	if data == nil {
		slog.Info("presets: no stored presets", "key", s.key)
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("presets: parse %s: %w", s.key, err)
	}
	migrateDocument(&doc)

	s.scenes = doc.Scenes
	s.nextID = nextID(s.scenes)
	slog.Info("presets: loaded", "key", s.key, "count", len(s.scenes), "next_id", s.nextID)
	return nil
}

// Export returns the persisted form of the collection.
func (s *Store) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return encode(s.scenes)
}

// CreateScene validates snap, assigns an id (explicitID if given) and
// persists the new preset.
func (s *Store) CreateScene(name string, snap models.Snapshot, explicitID *int) (int, error) {
	name = strings.TrimSpace(name)
	if err := models.ValidateScene(name, &snap, s.gen.MaxGain); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	if explicitID != nil {
		id = *explicitID
		if id < 1 {
			return 0, fmt.Errorf("%w: id must be positive", models.ErrValidation)
		}
		if s.indexOf(id) >= 0 {
			return 0, fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
	}

	now := s.now()
	next := s.cloneScenes()
	next = append(next, models.Preset{
		ID:        id,
		Name:      name,
		Snapshot:  snap.DeepCopy(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err := s.commit(next); err != nil {
		return 0, err
	}
	if id >= s.nextID {
		s.nextID = id + 1
	}
	slog.Info("presets: created", "id", id, "name", name)
	return id, nil
}

// UpdateScene replaces the snapshot of preset id, renaming it when name is
// non-nil.
func (s *Store) UpdateScene(id int, snap models.Snapshot, name *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	newName := s.scenes[i].Name
	if name != nil {
		newName = strings.TrimSpace(*name)
		if newName == "" {
			return ErrEmptyName
		}
	}
	if err := models.ValidateScene(newName, &snap, s.gen.MaxGain); err != nil {
		return err
	}

	next := s.cloneScenes()
	next[i].Name = newName
	next[i].Snapshot = snap.DeepCopy()
	next[i].UpdatedAt = s.now()
	if err := s.commit(next); err != nil {
		return err
	}
	slog.Info("presets: updated", "id", id)
	return nil
}

// DeleteScene removes preset id. Its id is not reused.
func (s *Store) DeleteScene(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	next := s.cloneScenes()
	next = append(next[:i], next[i+1:]...)
	if err := s.commit(next); err != nil {
		return err
	}
	slog.Info("presets: deleted", "id", id)
	return nil
}

// RenameScene changes the name of preset id.
func (s *Store) RenameScene(id int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	next := s.cloneScenes()
	next[i].Name = name
	next[i].UpdatedAt = s.now()
	return s.commit(next)
}

// GetSceneByID returns a copy of preset id.
func (s *Store) GetSceneByID(id int) (models.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Preset{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.scenes[i].DeepCopy(), nil
}

// GetAllScenes returns copies of every preset in insertion order.
func (s *Store) GetAllScenes() []models.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneScenes()
}

// Summaries returns the compact listing in insertion order.
func (s *Store) Summaries() []models.PresetSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PresetSummary, len(s.scenes))
	for i, p := range s.scenes {
		out[i] = models.PresetSummary{ID: p.ID, Name: p.Name, UpdatedAt: p.UpdatedAt}
	}
	return out
}

// GetSceneCount returns the number of presets.
func (s *Store) GetSceneCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scenes)
}

// NextID returns the id the next auto-assigned preset will get.
func (s *Store) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

// commit persists next and adopts it. Must be called with s.mu held.
func (s *Store) commit(next []models.Preset) error {
	data, err := encode(next)
	if err != nil {
		return fmt.Errorf("presets: encode: %w", err)
	}
	if err := s.blobs.SaveBlob(s.key, data); err != nil {
		return fmt.Errorf("presets: save: %w", err)
	}
	s.scenes = next
	return nil
}

func encode(scenes []models.Preset) ([]byte, error) {
	if scenes == nil {
		scenes = []models.Preset{}
	}
	return json.MarshalIndent(document{Version: DocumentVersion, Scenes: scenes}, "", "  ")
}

// indexOf must be called with s.mu held.
func (s *Store) indexOf(id int) int {
	for i := range s.scenes {
		if s.scenes[i].ID == id {
			return i
		}
	}
	return -1
}

// cloneScenes must be called with s.mu held.
func (s *Store) cloneScenes() []models.Preset {
	out := make([]models.Preset, len(s.scenes))
	for i, p := range s.scenes {
		out[i] = p.DeepCopy()
	}
	return out
}

// nextID returns max(id)+1, never less than 1.
func nextID(scenes []models.Preset) int {
	next := 1
	for _, p := range scenes {
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	return next
}
