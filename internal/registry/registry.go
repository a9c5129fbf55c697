package registry

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"listing-bot/internal/chat"
	"listing-bot/internal/models"
)

var (
	// ErrListingNotFound is returned when a referenced listing is absent.
	ErrListingNotFound = errors.New("listing not found")
	// ErrListingExists is returned when adding an id already tracked in the
	// guild.
	ErrListingExists = errors.New("listing already exists")
	// ErrRepresentationGone is returned when the chat platform refuses a
	// representation operation (channel unreachable, message deleted).
	ErrRepresentationGone = errors.New("representation unreachable")
)

// Saver persists the full listing state. The registry calls it synchronously
// after every mutation, while still holding the lock, so the snapshot always
// mirrors the latest mutation.
type Saver interface {
	Save(guilds map[string][]*models.Listing) error
}

// ChannelSet holds the five status channel ids of one guild.
type ChannelSet struct {
	New            string
	AwaitingAnswer string
	AwaitingTour   string
	Denied         string
	Accepted       string
}

// For returns the channel id routing to the given status.
func (cs *ChannelSet) For(status models.Status) string {
	switch status {
	case models.StatusNew:
		return cs.New
	case models.StatusAwaitingAnswer:
		return cs.AwaitingAnswer
	case models.StatusAwaitingTour:
		return cs.AwaitingTour
	case models.StatusDenied:
		return cs.Denied
	case models.StatusAccepted:
		return cs.Accepted
	}
	return ""
}

func (cs *ChannelSet) set(status models.Status, channelID string) {
	switch status {
	case models.StatusNew:
		cs.New = channelID
	case models.StatusAwaitingAnswer:
		cs.AwaitingAnswer = channelID
	case models.StatusAwaitingTour:
		cs.AwaitingTour = channelID
	case models.StatusDenied:
		cs.Denied = channelID
	case models.StatusAccepted:
		cs.Accepted = channelID
	}
}

// Registry is the process-scoped listing state: guild-keyed listing
// collections plus the provisioned channel sets. All mutating operations run
// under one lock and trigger a snapshot before returning.
type Registry struct {
	mu       sync.RWMutex
	chat     chat.Client
	saver    Saver
	category string
	listings map[string][]*models.Listing
	channels map[string]*ChannelSet
}

// New creates an empty registry provisioning channels under the named
// category.
func New(chatClient chat.Client, category string) *Registry {
	return &Registry{
		chat:     chatClient,
		category: category,
		listings: make(map[string][]*models.Listing),
		channels: make(map[string]*ChannelSet),
	}
}

// SetSaver wires the persistence engine. Must be set before the first
// mutation.
func (r *Registry) SetSaver(s Saver) {
	r.saver = s
}

// snapshotLocked persists the current state. Callers must hold the write
// lock. A write failure keeps the in-memory mutation and is surfaced loudly:
// a crash before the next successful snapshot would lose the change.
func (r *Registry) snapshotLocked() error {
	if r.saver == nil {
		return nil
	}
	if err := r.saver.Save(r.listings); err != nil {
		log.Printf("ERROR: Registry: snapshot failed, durability broken until next successful save: %v", err)
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

func (r *Registry) lookupLocked(guildID string, id int64) *models.Listing {
	for _, l := range r.listings[guildID] {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Lookup returns the listing with the given id in a guild.
func (r *Registry) Lookup(guildID string, id int64) (*models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if l := r.lookupLocked(guildID, id); l != nil {
		return l, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrListingNotFound, id)
}

// Get returns a deep copy of the listing, safe for readers that run outside
// the command serialization (autocomplete, sweep, admin API).
func (r *Registry) Get(guildID string, id int64) (models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l := r.lookupLocked(guildID, id)
	if l == nil {
		return models.Listing{}, fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}

	out := *l
	out.Tags = append([]models.Tag(nil), l.Tags...)
	if l.TourTime != nil {
		t := *l.TourTime
		out.TourTime = &t
	}
	return out, nil
}

// LookupByMessage resolves a listing from its representation message id.
// With an empty guildID every guild is scanned.
func (r *Registry) LookupByMessage(guildID, messageID string) (string, *models.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for gid, listings := range r.listings {
		if guildID != "" && gid != guildID {
			continue
		}
		for _, l := range listings {
			if l.MessageID == messageID {
				return gid, l, nil
			}
		}
	}
	return "", nil, fmt.Errorf("%w: message %s", ErrListingNotFound, messageID)
}

// channelSetLocked provisions (or returns the cached) channel set of a
// guild. Callers must hold the write lock.
func (r *Registry) channelSetLocked(guildID string) (*ChannelSet, error) {
	if cs, ok := r.channels[guildID]; ok {
		return cs, nil
	}

	categoryID, err := r.chat.EnsureCategory(guildID, r.category)
	if err != nil {
		return nil, fmt.Errorf("ensure category %q: %w", r.category, err)
	}

	cs := &ChannelSet{}
	for _, status := range models.AllStatuses {
		channelID, err := r.chat.EnsureTextChannel(guildID, categoryID, string(status))
		if err != nil {
			return nil, fmt.Errorf("ensure channel %q: %w", status, err)
		}
		cs.set(status, channelID)
	}

	r.channels[guildID] = cs
	log.Printf("Registry: provisioned channel set for guild %s", guildID)
	return cs, nil
}

// ChannelSet returns the guild's status channels, provisioning them on first
// access and caching the result for the process lifetime.
func (r *Registry) ChannelSet(guildID string) (*ChannelSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.channelSetLocked(guildID)
}

// Add creates the listing's representation in the guild's "new" channel and
// inserts the listing. Duplicate ids are rejected; nothing is mutated when
// the representation cannot be created.
func (r *Registry) Add(guildID string, l *models.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.lookupLocked(guildID, l.ID); existing != nil {
		return fmt.Errorf("%w: %d", ErrListingExists, l.ID)
	}

	cs, err := r.channelSetLocked(guildID)
	if err != nil {
		return err
	}

	messageID, err := r.chat.CreateMessage(cs.New, l.Render())
	if err != nil {
		return fmt.Errorf("%w: create in %q: %v", ErrRepresentationGone, models.StatusNew, err)
	}
	l.SetRepresentation(cs.New, messageID)

	r.listings[guildID] = append(r.listings[guildID], l)
	return r.snapshotLocked()
}

// Remove deletes the listing's representation (best-effort), drops the
// listing, and removes the guild entry entirely when its collection becomes
// empty.
func (r *Registry) Remove(guildID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	listings := r.listings[guildID]
	idx := -1
	for i, l := range listings {
		if l.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}

	l := listings[idx]
	if l.HasRepresentation() {
		if err := r.chat.DeleteMessage(l.ChannelID, l.MessageID); err != nil {
			log.Printf("Registry: failed to delete representation of listing %d: %v", id, err)
		}
	}

	r.listings[guildID] = append(listings[:idx], listings[idx+1:]...)
	if len(r.listings[guildID]) == 0 {
		delete(r.listings, guildID)
	}

	return r.snapshotLocked()
}

// Update mutates a listing in place via fn, re-renders its representation,
// and snapshots. A failed re-render keeps the field change: visual drift is
// acceptable, data loss is not.
func (r *Registry) Update(guildID string, id int64, fn func(l *models.Listing)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.lookupLocked(guildID, id)
	if l == nil {
		return fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}

	fn(l)

	if l.HasRepresentation() {
		if err := r.chat.EditMessage(l.ChannelID, l.MessageID, l.Render()); err != nil {
			log.Printf("Registry: re-render of listing %d failed, keeping field change: %v", id, err)
		}
	}

	return r.snapshotLocked()
}

// UpdateByMessage resolves a listing by its representation message and runs
// fn with the listing and the guild's channel set under the write lock.
// A snapshot is taken even when fn fails, so a half-completed move (listing
// left without representation) is recorded for reconciliation.
func (r *Registry) UpdateByMessage(guildID, messageID string, fn func(l *models.Listing, cs *ChannelSet) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var target *models.Listing
	for _, l := range r.listings[guildID] {
		if l.MessageID == messageID {
			target = l
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: message %s", ErrListingNotFound, messageID)
	}

	cs, err := r.channelSetLocked(guildID)
	if err != nil {
		return err
	}

	fnErr := fn(target, cs)
	if snapErr := r.snapshotLocked(); snapErr != nil && fnErr == nil {
		return snapErr
	}
	return fnErr
}

// Replace swaps in a fully reconstructed state without triggering a
// snapshot. Used by the persistence engine after reload; channel caches are
// kept.
func (r *Registry) Replace(guilds map[string][]*models.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listings = make(map[string][]*models.Listing, len(guilds))
	for gid, listings := range guilds {
		if len(listings) == 0 {
			continue
		}
		r.listings[gid] = listings
	}
}

// SnapshotNow forces a snapshot of the current state.
func (r *Registry) SnapshotNow() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked()
}

// Guilds returns the ids of guilds that currently track listings.
func (r *Registry) Guilds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.listings))
	for gid := range r.listings {
		out = append(out, gid)
	}
	return out
}

// IDs returns the listing ids of a guild in insertion order.
func (r *Registry) IDs(guildID string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listings := r.listings[guildID]
	out := make([]int64, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

// ListingsCopy returns deep copies of a guild's listings in insertion order,
// safe to read without interleaving with mutations.
func (r *Registry) ListingsCopy(guildID string) []models.Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listings := r.listings[guildID]
	out := make([]models.Listing, len(listings))
	for i, l := range listings {
		out[i] = *l
		out[i].Tags = append([]models.Tag(nil), l.Tags...)
		if l.TourTime != nil {
			t := *l.TourTime
			out[i].TourTime = &t
		}
	}
	return out
}

// Stats returns the listing count per guild.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.listings))
	for gid, listings := range r.listings {
		out[gid] = len(listings)
	}
	return out
}
