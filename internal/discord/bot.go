package discord

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"listing-bot/internal/config"
	"listing-bot/internal/enrich"
	"listing-bot/internal/registry"
	"listing-bot/internal/router"
	"listing-bot/internal/store"
)

// Bot wires the Discord gateway to the listing engine: it provisions channel
// sets on ready, reloads the snapshot, registers the command surface, and
// dispatches interactions.
type Bot struct {
	session  *discordgo.Session
	client   *Client
	reg      *registry.Registry
	router   *router.Router
	store    *store.Store
	enricher *enrich.Enricher // nil when enrichment is disabled
	config   *config.Config
}

// NewBot attaches the listing engine to an open-able Discord session.
func NewBot(session *discordgo.Session, cfg *config.Config, reg *registry.Registry, rt *router.Router, st *store.Store, enricher *enrich.Enricher) *Bot {
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	b := &Bot{
		session:  session,
		client:   NewClient(session),
		reg:      reg,
		router:   rt,
		store:    st,
		enricher: enricher,
		config:   cfg,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)

	return b
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

// onReady provisions channel sets for every guild, reconciles the snapshot
// against live messages, and registers the command surface.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, guild := range r.Guilds {
		log.Printf("Bot: provisioning channels for guild %s...", guild.ID)
		if _, err := b.reg.ChannelSet(guild.ID); err != nil {
			log.Printf("Bot: failed to provision channels for guild %s: %v", guild.ID, err)
		}
	}

	log.Println("Bot: loading existing listings, this will take some time...")
	if err := b.store.Load(b.reg, b.client, b.config.Storage.RerenderOnLoad); err != nil {
		log.Printf("Bot: reload finished with error: %v", err)
	}

	for _, guild := range r.Guilds {
		b.registerCommands(guild.ID)
	}

	log.Println("Bot: ready")
}

// registerCommands creates the guild-scoped application commands.
func (b *Bot) registerCommands(guildID string) {
	for _, cmd := range commandDefinitions() {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, guildID, cmd); err != nil {
			log.Printf("Bot: failed to register command %q in guild %s: %v", cmd.Name, guildID, err)
		}
	}
}
