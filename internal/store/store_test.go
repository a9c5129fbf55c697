package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"listing-bot/internal/chat"
	"listing-bot/internal/models"
	"listing-bot/internal/registry"
)

func newTestStore(t *testing.T) (*Store, *registry.Registry, *chat.InMemory) {
	t.Helper()

	mem := chat.NewInMemory()
	st := NewStore(filepath.Join(t.TempDir(), "listings.json"))
	reg := registry.New(mem, "listings")
	reg.SetSaver(st)
	return st, reg, mem
}

// freshRegistry builds a second registry over the same chat state, as a
// restarted process would.
func freshRegistry(st *Store, mem *chat.InMemory) *registry.Registry {
	reg := registry.New(mem, "listings")
	reg.SetSaver(st)
	return reg
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	st, reg, mem := newTestStore(t)

	if err := st.Load(reg, mem, false); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if guilds := reg.Guilds(); len(guilds) != 0 {
		t.Errorf("Guilds = %v, want empty", guilds)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	st, reg, mem := newTestStore(t)

	tour := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	first := models.NewListing(111, models.TagNormal)
	first.AddTag(models.TagFar)
	first.SetAddress("Musterstr. 1")
	second := models.NewListing(222, models.TagExpensive)
	second.SetTourTime(&tour)

	for _, l := range []*models.Listing{first, second} {
		if err := reg.Add("guild-1", l); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	reloaded := freshRegistry(st, mem)
	if err := st.Load(reloaded, mem, false); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := reg.ListingsCopy("guild-1")
	got := reloaded.ListingsCopy("guild-1")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reloaded listings = %+v, want %+v", got, want)
	}
}

func TestLoad_PreservesInsertionOrder(t *testing.T) {
	st, reg, mem := newTestStore(t)

	for _, id := range []int64{5, 3, 9, 1} {
		if err := reg.Add("guild-1", models.NewListing(id, models.TagNormal)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	reloaded := freshRegistry(st, mem)
	if err := st.Load(reloaded, mem, false); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []int64{5, 3, 9, 1}
	if got := reloaded.IDs("guild-1"); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs = %v, want %v", got, want)
	}
}

func TestLoad_DropsOrphanedListing(t *testing.T) {
	st, reg, mem := newTestStore(t)

	l := models.NewListing(111, models.TagNormal)
	if err := reg.Add("guild-1", l); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// The representation is deleted externally while the bot is down.
	if err := mem.DeleteMessage(l.ChannelID, l.MessageID); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}

	reloaded := freshRegistry(st, mem)
	if err := st.Load(reloaded, mem, false); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if guilds := reloaded.Guilds(); len(guilds) != 0 {
		t.Errorf("Guilds = %v, want empty after orphan drop", guilds)
	}

	// The re-saved snapshot no longer mentions the guild.
	data, err := os.ReadFile(st.Path())
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var onDisk map[string]json.RawMessage
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if _, ok := onDisk["guild-1"]; ok {
		t.Errorf("re-saved snapshot still contains guild-1: %s", data)
	}
}

func TestLoad_DropsOnlyBrokenRecords(t *testing.T) {
	st, reg, mem := newTestStore(t)

	good := models.NewListing(1, models.TagNormal)
	orphan := models.NewListing(2, models.TagBad)
	for _, l := range []*models.Listing{good, orphan} {
		if err := reg.Add("guild-1", l); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := mem.DeleteMessage(orphan.ChannelID, orphan.MessageID); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}

	reloaded := freshRegistry(st, mem)
	if err := st.Load(reloaded, mem, false); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := reloaded.IDs("guild-1"); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("IDs = %v, want [1]", got)
	}
}

func TestLoad_MalformedRecordDoesNotBlockOthers(t *testing.T) {
	st, reg, mem := newTestStore(t)

	// A real message for the valid record.
	messageID, err := mem.CreateMessage("chan-1", chat.Message{Title: "x"})
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	doc := fmt.Sprintf(`{
    "guild-1": [
        "not an object",
        {"id": 0, "tags": ["NORMAL"], "message": "m", "channel": "c"},
        {"id": 7, "tags": ["NORMAL"], "message": %q, "channel": "chan-1"}
    ]
}`, messageID)
	if err := os.WriteFile(st.Path(), []byte(doc), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	if err := st.Load(reg, mem, false); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := reg.IDs("guild-1"); !reflect.DeepEqual(got, []int64{7}) {
		t.Errorf("IDs = %v, want [7]", got)
	}
}

func TestLoad_CorruptDocumentTreatedAsEmpty(t *testing.T) {
	st, reg, mem := newTestStore(t)

	if err := os.WriteFile(st.Path(), []byte("{{{{"), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	if err := st.Load(reg, mem, false); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if guilds := reg.Guilds(); len(guilds) != 0 {
		t.Errorf("Guilds = %v, want empty", guilds)
	}
}

func TestLoad_RerenderNormalizesDrift(t *testing.T) {
	st, reg, mem := newTestStore(t)

	l := models.NewListing(1, models.TagNormal)
	if err := reg.Add("guild-1", l); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// The message drifts while the bot is down.
	if err := mem.EditMessage(l.ChannelID, l.MessageID, chat.Message{Title: "vandalized"}); err != nil {
		t.Fatalf("EditMessage failed: %v", err)
	}

	reloaded := freshRegistry(st, mem)
	if err := st.Load(reloaded, mem, true); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	msg, err := mem.FetchMessage(l.ChannelID, l.MessageID)
	if err != nil {
		t.Fatalf("FetchMessage failed: %v", err)
	}
	if !reflect.DeepEqual(msg, l.Render()) {
		t.Errorf("representation = %+v, want re-rendered %+v", msg, l.Render())
	}
}

func TestLoad_NoRerenderLeavesDrift(t *testing.T) {
	st, reg, mem := newTestStore(t)

	l := models.NewListing(1, models.TagNormal)
	if err := reg.Add("guild-1", l); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	drifted := chat.Message{Title: "vandalized"}
	if err := mem.EditMessage(l.ChannelID, l.MessageID, drifted); err != nil {
		t.Fatalf("EditMessage failed: %v", err)
	}

	reloaded := freshRegistry(st, mem)
	if err := st.Load(reloaded, mem, false); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	msg, _ := mem.FetchMessage(l.ChannelID, l.MessageID)
	if !reflect.DeepEqual(msg, drifted) {
		t.Errorf("representation = %+v, want untouched %+v", msg, drifted)
	}
	if got := reloaded.IDs("guild-1"); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("IDs = %v, want [1]", got)
	}
}

func TestSave_FailureIsSnapshotWrite(t *testing.T) {
	mem := chat.NewInMemory()
	// Point the store at a path whose directory does not exist.
	st := NewStore(filepath.Join(t.TempDir(), "missing", "listings.json"))
	reg := registry.New(mem, "listings")
	reg.SetSaver(st)

	err := reg.Add("guild-1", models.NewListing(1, models.TagNormal))
	if !errors.Is(err, ErrSnapshotWrite) {
		t.Fatalf("Add error = %v, want ErrSnapshotWrite", err)
	}

	// The mutation stands in memory.
	if got := reg.IDs("guild-1"); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("IDs = %v, want [1]", got)
	}
}
