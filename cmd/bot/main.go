package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"

	"listing-bot/internal/chat"
	"listing-bot/internal/config"
	"listing-bot/internal/discord"
	"listing-bot/internal/enrich"
	"listing-bot/internal/handlers"
	"listing-bot/internal/registry"
	"listing-bot/internal/reminder"
	"listing-bot/internal/router"
	"listing-bot/internal/store"
)

func main() {
	// Load configuration
	configPath := getEnv("CONFIG_PATH", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		cfg = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}

	token := getEnv("DISCORD_TOKEN", cfg.Discord.Token)

	// Without a token the bot runs against an in-memory chat backend. Useful
	// for poking at the admin API locally; state still persists to disk.
	var session *discordgo.Session
	var chatClient chat.Client
	if token == "" {
		log.Println("No Discord token configured, running in dry-run mode with in-memory chat")
		chatClient = chat.NewInMemory()
	} else {
		session, err = discordgo.New("Bot " + token)
		if err != nil {
			log.Fatalf("Failed to create Discord session: %v", err)
		}
		chatClient = discord.NewClient(session)
	}

	// Wire the listing engine
	reg := registry.New(chatClient, cfg.Discord.CategoryName)
	st := store.NewStore(cfg.Storage.SaveFile)
	reg.SetSaver(st)
	rt := router.New(reg, chatClient)

	var enricher *enrich.Enricher
	if cfg.Enrichment.Enabled {
		enricher = enrich.New(&cfg.Enrichment)
		log.Println("Address enrichment enabled")
	}

	// Daily tour reminder
	rem := reminder.New(reg, chatClient, &cfg.Reminder)
	if err := rem.Start(); err != nil {
		log.Fatalf("Failed to start reminder: %v", err)
	}
	defer rem.Stop()

	// Operator HTTP API
	if cfg.Admin.Enabled {
		admin := handlers.NewAdminHandler(reg, rem)
		go func() {
			log.Printf("Admin API listening on %s", cfg.Admin.ListenAddr)
			if err := admin.Router().Run(cfg.Admin.ListenAddr); err != nil {
				log.Printf("Admin API stopped: %v", err)
			}
		}()
	}

	if session != nil {
		// Channel provisioning, snapshot reload, and command registration
		// happen in the ready handler once the gateway is up.
		bot := discord.NewBot(session, cfg, reg, rt, st, enricher)
		if err := bot.Open(); err != nil {
			log.Fatalf("Failed to connect to Discord: %v", err)
		}
		defer bot.Close()
	} else {
		if err := st.Load(reg, chatClient, cfg.Storage.RerenderOnLoad); err != nil {
			log.Printf("Reload finished with error: %v", err)
		}
	}

	// Run until interrupted
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	// Final snapshot flush so shutdown never loses a mutation that failed to
	// persist earlier.
	log.Println("Shutting down, flushing snapshot...")
	if err := reg.SnapshotNow(); err != nil {
		log.Printf("Final snapshot flush failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
