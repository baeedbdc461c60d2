package presets

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/openbias/biasd/internal/models"
)

// migrateDocument normalises documents written by older releases: a missing
// version is adopted as the current one, invalid or repeated ids are
// renumbered past the highest valid id, and blank names are filled in.
func migrateDocument(doc *document) {
	if doc.Version == 0 {
		slog.Info("presets: adopting unversioned document", "version", DocumentVersion)
		doc.Version = DocumentVersion
	}
	if doc.Version > DocumentVersion {
		slog.Warn("presets: document is newer than this release", "version", doc.Version)
	}

	if doc.Scenes == nil {
		doc.Scenes = []models.Preset{}
		return
	}

	next := nextID(doc.Scenes)
	seen := make(map[int]bool, len(doc.Scenes))
	for i := range doc.Scenes {
		p := &doc.Scenes[i]
		if p.ID < 1 || seen[p.ID] {
			slog.Warn("presets: invalid preset id, renumbering", "id", p.ID, "index", i, "new_id", next)
			p.ID = next
			next++
		}
		seen[p.ID] = true

		if strings.TrimSpace(p.Name) == "" {
			p.Name = fmt.Sprintf("Preset %d", p.ID)
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
	}
}
