package reminder

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"listing-bot/internal/chat"
	"listing-bot/internal/config"
	"listing-bot/internal/models"
	"listing-bot/internal/registry"
)

// Reminder runs the daily tour sweep: every guild with viewings scheduled
// for tomorrow gets a ping in its awaiting-tour channel. The sweep only
// reads listing state.
type Reminder struct {
	cron      *cron.Cron
	reg       *registry.Registry
	chat      chat.Client
	config    *config.ReminderConfig
	isRunning bool

	// now is swappable for tests.
	now func() time.Time
}

// New creates a reminder sweep over the registry.
func New(reg *registry.Registry, chatClient chat.Client, cfg *config.ReminderConfig) *Reminder {
	return &Reminder{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		reg:    reg,
		chat:   chatClient,
		config: cfg,
		now:    time.Now,
	}
}

// Start schedules the daily sweep.
func (r *Reminder) Start() error {
	if !r.config.Enabled {
		log.Println("Reminder: daily sweep is disabled in configuration")
		return nil
	}

	cronSpec := r.parseDailyRunTime(r.config.Time)

	_, err := r.cron.AddFunc(cronSpec, func() {
		log.Println("Reminder: starting daily tour sweep...")
		if err := r.RunNow(); err != nil {
			log.Printf("Reminder: daily sweep failed: %v", err)
		} else {
			log.Println("Reminder: daily sweep completed")
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	r.isRunning = true
	log.Printf("Reminder: started with daily run at %s UTC (cron: %s)", r.config.Time, cronSpec)

	return nil
}

// Stop stops the scheduler.
func (r *Reminder) Stop() {
	if r.isRunning {
		r.cron.Stop()
		r.isRunning = false
		log.Println("Reminder: stopped")
	}
}

// RunNow immediately executes the sweep (cron job body and manual trigger).
func (r *Reminder) RunNow() error {
	tomorrow := r.now().UTC().AddDate(0, 0, 1)

	for _, guildID := range r.reg.Guilds() {
		urls := r.toursOn(guildID, tomorrow)
		if len(urls) == 0 {
			continue
		}

		cs, err := r.reg.ChannelSet(guildID)
		if err != nil {
			log.Printf("Reminder: no channel set for guild %s: %v", guildID, err)
			continue
		}

		text := fmt.Sprintf("@everyone there are tours tomorrow: %s", strings.Join(urls, ", "))
		if err := r.chat.Announce(cs.For(models.StatusAwaitingTour), text); err != nil {
			log.Printf("Reminder: failed to announce in guild %s: %v", guildID, err)
			continue
		}

		log.Printf("Reminder: announced %d tours for guild %s", len(urls), guildID)
	}

	return nil
}

// toursOn returns the URLs of listings with a viewing on the given UTC date.
func (r *Reminder) toursOn(guildID string, day time.Time) []string {
	y, m, d := day.Date()

	var urls []string
	for _, l := range r.reg.ListingsCopy(guildID) {
		if l.TourTime == nil {
			continue
		}
		ty, tm, td := l.TourTime.UTC().Date()
		if ty == y && tm == m && td == d {
			urls = append(urls, l.URL())
		}
	}
	return urls
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "20:00" -> "0 20 * * *" (run at 20:00 every day)
func (r *Reminder) parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	// Default to 20:00 if parsing fails
	log.Printf("Reminder: failed to parse time '%s', using default 20:00", timeStr)
	return "0 20 * * *"
}
