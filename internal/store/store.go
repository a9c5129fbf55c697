package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"listing-bot/internal/chat"
	"listing-bot/internal/models"
	"listing-bot/internal/registry"
)

// ErrSnapshotWrite is returned when the snapshot file cannot be written. The
// in-memory mutation stands, but durability is broken until the next
// successful save.
var ErrSnapshotWrite = errors.New("snapshot write failed")

// Store persists the full listing state as one JSON document keyed by guild
// id, rewritten whole on every save.
type Store struct {
	path string
}

// NewStore creates a store writing to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Save serializes all guilds and atomically replaces the snapshot file
// (temp file + rename, so a crash mid-write never leaves a torn document).
func (s *Store) Save(guilds map[string][]*models.Listing) error {
	data, err := json.MarshalIndent(guilds, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotWrite, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".listings-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotWrite, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSnapshotWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSnapshotWrite, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSnapshotWrite, err)
	}

	return nil
}

// Load reads the snapshot and reconciles every record against live chat
// state: the representation is re-fetched, optionally re-rendered, and the
// listing inserted in persisted order. Records whose representation no
// longer resolves (or that fail to decode) are dropped; a missing file is an
// empty snapshot. After reconciliation the state is re-saved so the file
// reflects exactly what survived. Per-record failures never abort the load.
func (s *Store) Load(reg *registry.Registry, chatClient chat.Client, rerender bool) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Store: no snapshot at %s, nothing to load", s.path)
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}

	// Records are decoded individually so one malformed entry never blocks
	// the rest.
	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("Store: snapshot at %s is not a valid document, treating as empty: %v", s.path, err)
		raw = nil
	}

	guilds := make(map[string][]*models.Listing, len(raw))
	total, dropped := 0, 0

	for guildID, records := range raw {
		for _, record := range records {
			total++

			l := new(models.Listing)
			if err := json.Unmarshal(record, l); err != nil || l.ID <= 0 {
				log.Printf("Store: dropping malformed record in guild %s: %v", guildID, err)
				dropped++
				continue
			}

			if !l.HasRepresentation() {
				log.Printf("Store: dropping listing %d in guild %s: no representation recorded", l.ID, guildID)
				dropped++
				continue
			}

			if _, err := chatClient.FetchMessage(l.ChannelID, l.MessageID); err != nil {
				log.Printf("Store: dropping listing %d in guild %s: representation gone: %v", l.ID, guildID, err)
				dropped++
				continue
			}

			if rerender {
				if err := chatClient.EditMessage(l.ChannelID, l.MessageID, l.Render()); err != nil {
					log.Printf("Store: dropping listing %d in guild %s: re-render failed: %v", l.ID, guildID, err)
					dropped++
					continue
				}
			}

			guilds[guildID] = append(guilds[guildID], l)
		}
	}

	reg.Replace(guilds)
	log.Printf("Store: loaded %d listings across %d guilds (%d dropped)", total-dropped, len(guilds), dropped)

	// Re-save so the persisted file matches the survivors.
	return reg.SnapshotNow()
}
