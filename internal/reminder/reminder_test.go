package reminder

import (
	"strings"
	"testing"
	"time"

	"listing-bot/internal/chat"
	"listing-bot/internal/config"
	"listing-bot/internal/models"
	"listing-bot/internal/registry"
)

func setup(t *testing.T) (*Reminder, *registry.Registry, *chat.InMemory) {
	t.Helper()

	mem := chat.NewInMemory()
	reg := registry.New(mem, "listings")
	cfg := &config.ReminderConfig{Enabled: true, Time: "20:00"}
	return New(reg, mem, cfg), reg, mem
}

func addListing(t *testing.T, reg *registry.Registry, guildID string, id int64, tour *time.Time) {
	t.Helper()

	l := models.NewListing(id, models.TagNormal)
	l.SetTourTime(tour)
	if err := reg.Add(guildID, l); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
}

func TestRunNow_AnnouncesTomorrowsTours(t *testing.T) {
	rem, reg, mem := setup(t)

	now := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	rem.now = func() time.Time { return now }

	tomorrow := time.Date(2024, 6, 2, 14, 30, 0, 0, time.UTC)
	dayAfter := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	addListing(t, reg, "guild-1", 111, &tomorrow)
	addListing(t, reg, "guild-1", 222, &dayAfter)
	addListing(t, reg, "guild-1", 333, nil)

	if err := rem.RunNow(); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	cs, err := reg.ChannelSet("guild-1")
	if err != nil {
		t.Fatalf("ChannelSet failed: %v", err)
	}
	announcements := mem.Announcements(cs.AwaitingTour)
	if len(announcements) != 1 {
		t.Fatalf("announcements = %v, want exactly one", announcements)
	}

	text := announcements[0]
	if !strings.Contains(text, "expose/111") {
		t.Errorf("announcement %q should mention listing 111", text)
	}
	if strings.Contains(text, "expose/222") || strings.Contains(text, "expose/333") {
		t.Errorf("announcement %q mentions listings without a tour tomorrow", text)
	}
	if !strings.Contains(text, "@everyone") {
		t.Errorf("announcement %q should ping everyone", text)
	}
}

func TestRunNow_QuietWhenNothingScheduled(t *testing.T) {
	rem, reg, mem := setup(t)

	now := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	rem.now = func() time.Time { return now }

	farAway := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	addListing(t, reg, "guild-1", 111, &farAway)

	if err := rem.RunNow(); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	cs, _ := reg.ChannelSet("guild-1")
	if announcements := mem.Announcements(cs.AwaitingTour); len(announcements) != 0 {
		t.Errorf("announcements = %v, want none", announcements)
	}
}

func TestRunNow_PerGuildAnnouncements(t *testing.T) {
	rem, reg, mem := setup(t)

	now := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	rem.now = func() time.Time { return now }

	tomorrow := time.Date(2024, 6, 2, 11, 0, 0, 0, time.UTC)
	addListing(t, reg, "guild-1", 111, &tomorrow)
	addListing(t, reg, "guild-2", 222, nil)

	if err := rem.RunNow(); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	cs1, _ := reg.ChannelSet("guild-1")
	cs2, _ := reg.ChannelSet("guild-2")
	if got := mem.Announcements(cs1.AwaitingTour); len(got) != 1 {
		t.Errorf("guild-1 announcements = %v, want one", got)
	}
	if got := mem.Announcements(cs2.AwaitingTour); len(got) != 0 {
		t.Errorf("guild-2 announcements = %v, want none", got)
	}
}

func TestParseDailyRunTime(t *testing.T) {
	rem, _, _ := setup(t)

	if got := rem.parseDailyRunTime("20:00"); got != "0 20 * * *" {
		t.Errorf("parseDailyRunTime(20:00) = %q, want %q", got, "0 20 * * *")
	}
	if got := rem.parseDailyRunTime("07:30"); got != "30 7 * * *" {
		t.Errorf("parseDailyRunTime(07:30) = %q, want %q", got, "30 7 * * *")
	}
	if got := rem.parseDailyRunTime("bogus"); got != "0 20 * * *" {
		t.Errorf("parseDailyRunTime(bogus) = %q, want default %q", got, "0 20 * * *")
	}
}
