package discord

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"listing-bot/internal/models"
	"listing-bot/internal/registry"
	"listing-bot/internal/store"
)

// moveTargets maps the message-command labels onto router states.
var moveTargets = map[string]models.Status{
	"Request Sent":         models.StatusAwaitingAnswer,
	"Awaiting Tour":        models.StatusAwaitingTour,
	"Application Denied":   models.StatusDenied,
	"Application Accepted": models.StatusAccepted,
}

func tagChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(models.AllTags))
	for i, tag := range models.AllTags {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: string(tag), Value: string(tag)}
	}
	return choices
}

func idOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionInteger,
		Name:         "id",
		Description:  "listing id",
		Required:     true,
		Autocomplete: true,
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "add",
			Description: "add listing",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "expose url",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "address",
					Description: "address of the listing",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "initial_tag",
					Description: "initial tag",
					Choices:     tagChoices(),
				},
			},
		},
		{
			Name:        "remove",
			Description: "remove listing",
			Options:     []*discordgo.ApplicationCommandOption{idOption()},
		},
		{
			Name:        "tag",
			Description: "add or remove a tag on a listing",
			Options: []*discordgo.ApplicationCommandOption{
				idOption(),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "ADD or REMOVE",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: string(models.TagModeAdd), Value: string(models.TagModeAdd)},
						{Name: string(models.TagModeRemove), Value: string(models.TagModeRemove)},
					},
				},
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "tag",
					Description:  "tag name",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "add-tour-date",
			Description: "set the viewing time of a listing",
			Options: []*discordgo.ApplicationCommandOption{
				idOption(),
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "day", Description: "day of month"},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "month", Description: "month"},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "year", Description: "year"},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "hour", Description: "hour"},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "minute", Description: "minute"},
			},
		},
		{
			Name:        "add-address",
			Description: "set or clear the address of a listing",
			Options: []*discordgo.ApplicationCommandOption{
				idOption(),
				{Type: discordgo.ApplicationCommandOptionString, Name: "address", Description: "address (omit to clear)"},
			},
		},
		{
			Name:        "debug",
			Description: "dump tracked state",
		},
	}

	for label := range moveTargets {
		commands = append(commands, &discordgo.ApplicationCommand{
			Name: label,
			Type: discordgo.MessageApplicationCommand,
		})
	}

	return commands
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(i)
	}
}

func (b *Bot) handleCommand(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	if target, ok := moveTargets[data.Name]; ok {
		b.handleMove(i, data, target)
		return
	}

	switch data.Name {
	case "add":
		b.handleAdd(i, data)
	case "remove":
		b.handleRemove(i, data)
	case "tag":
		b.handleTag(i, data)
	case "add-tour-date":
		b.handleTourDate(i, data)
	case "add-address":
		b.handleAddress(i, data)
	case "debug":
		b.handleDebug(i)
	}
}

func options(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		out[opt.Name] = opt
	}
	return out
}

func (b *Bot) respond(i *discordgo.InteractionCreate, text string, ephemeral bool) {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text},
	}
	if ephemeral {
		resp.Data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := b.session.InteractionRespond(i.Interaction, resp); err != nil {
		log.Printf("Bot: failed to respond to interaction: %v", err)
	}
}

// respondError answers with the failure; snapshot failures deserve a louder
// wording since the mutation itself went through.
func (b *Bot) respondError(i *discordgo.InteractionCreate, action string, err error) {
	if errors.Is(err, store.ErrSnapshotWrite) {
		b.respond(i, fmt.Sprintf("%s, but saving to disk FAILED - state is not durable: %v", action, err), true)
		return
	}
	b.respond(i, fmt.Sprintf("failed to %s: %v", action, err), true)
}

func (b *Bot) handleAdd(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := options(data)

	id, err := models.ParseListingID(opts["url"].StringValue())
	if err != nil {
		b.respond(i, "invalid url", true)
		return
	}

	tag := models.TagNormal
	if opt, ok := opts["initial_tag"]; ok && models.ValidTag(opt.StringValue()) {
		tag = models.Tag(opt.StringValue())
	}

	l := models.NewListing(id, tag)
	if opt, ok := opts["address"]; ok {
		l.SetAddress(opt.StringValue())
	} else if b.enricher != nil {
		if address, err := b.enricher.FetchAddress(id); err == nil {
			l.SetAddress(address)
		} else {
			log.Printf("Bot: address enrichment for listing %d failed: %v", id, err)
		}
	}

	if err := b.reg.Add(i.GuildID, l); err != nil {
		if errors.Is(err, registry.ErrListingExists) {
			b.respond(i, fmt.Sprintf("listing %d is already tracked", id), true)
			return
		}
		if errors.Is(err, store.ErrSnapshotWrite) {
			b.respondError(i, fmt.Sprintf("added listing with ID %d", id), err)
			return
		}
		b.respondError(i, "add listing", err)
		return
	}

	b.respond(i, fmt.Sprintf("added listing with ID %d", id), false)
}

func (b *Bot) handleRemove(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	id := options(data)["id"].IntValue()

	if err := b.reg.Remove(i.GuildID, id); err != nil {
		if errors.Is(err, store.ErrSnapshotWrite) {
			b.respondError(i, fmt.Sprintf("removed listing %d", id), err)
			return
		}
		b.respondError(i, "remove listing", err)
		return
	}

	b.respond(i, strconv.FormatInt(id, 10), false)
}

func (b *Bot) handleTag(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := options(data)
	id := opts["id"].IntValue()
	mode := models.TagMode(opts["mode"].StringValue())
	tagName := opts["tag"].StringValue()

	if !models.ValidTag(tagName) {
		b.respond(i, fmt.Sprintf("unknown tag %q", tagName), true)
		return
	}
	tag := models.Tag(tagName)

	var reply string
	err := b.reg.Update(i.GuildID, id, func(l *models.Listing) {
		switch mode {
		case models.TagModeAdd:
			l.AddTag(tag)
			reply = fmt.Sprintf("added tag %s to %d", tag, id)
		case models.TagModeRemove:
			l.RemoveTag(tag)
			reply = fmt.Sprintf("removed tag %s from %d", tag, id)
		}
	})
	if err != nil {
		if errors.Is(err, store.ErrSnapshotWrite) {
			b.respondError(i, reply, err)
			return
		}
		b.respondError(i, "modify tags", err)
		return
	}
	if reply == "" {
		b.respond(i, fmt.Sprintf("unknown mode %q", mode), true)
		return
	}

	b.respond(i, reply, true)
}

func (b *Bot) handleTourDate(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := options(data)
	id := opts["id"].IntValue()

	// Missing parts default from the current time; the minute is rounded
	// down to the half hour.
	now := time.Now().UTC()
	pick := func(name string, fallback int) int {
		if opt, ok := opts[name]; ok {
			return int(opt.IntValue())
		}
		return fallback
	}
	tourTime := time.Date(
		pick("year", now.Year()),
		time.Month(pick("month", int(now.Month()))),
		pick("day", now.Day()),
		pick("hour", now.Hour()),
		pick("minute", now.Minute()-now.Minute()%30),
		0, 0, time.UTC,
	)

	err := b.reg.Update(i.GuildID, id, func(l *models.Listing) {
		l.SetTourTime(&tourTime)
	})
	if err != nil {
		if errors.Is(err, store.ErrSnapshotWrite) {
			b.respondError(i, fmt.Sprintf("time set to %s", tourTime.Format(time.RFC3339)), err)
			return
		}
		b.respondError(i, "set tour time", err)
		return
	}

	b.respond(i, fmt.Sprintf("time set to %s", tourTime.Format(time.RFC3339)), true)
}

func (b *Bot) handleAddress(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := options(data)
	id := opts["id"].IntValue()

	address := ""
	if opt, ok := opts["address"]; ok {
		address = opt.StringValue()
	}

	err := b.reg.Update(i.GuildID, id, func(l *models.Listing) {
		l.SetAddress(address)
	})
	if err != nil {
		if errors.Is(err, store.ErrSnapshotWrite) {
			b.respondError(i, fmt.Sprintf("updated address of %d", id), err)
			return
		}
		b.respondError(i, "set address", err)
		return
	}

	if address == "" {
		b.respond(i, fmt.Sprintf("removed address from %d", id), true)
	} else {
		b.respond(i, fmt.Sprintf("set address on %d to %s", id, address), true)
	}
}

func (b *Bot) handleDebug(i *discordgo.InteractionCreate) {
	listings := b.reg.ListingsCopy(i.GuildID)
	if len(listings) == 0 {
		b.respond(i, "no listings tracked in this guild", true)
		return
	}

	text := ""
	for _, l := range listings {
		text += fmt.Sprintf("%d tags=%v channel=%s message=%s address=%q\n", l.ID, l.Tags, l.ChannelID, l.MessageID, l.Address)
	}
	b.respond(i, text, true)
}

func (b *Bot) handleMove(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData, target models.Status) {
	moved, err := b.router.Move(i.GuildID, data.TargetID, target)
	if err != nil {
		if errors.Is(err, registry.ErrListingNotFound) {
			b.respond(i, "no listing associated with message", true)
			return
		}
		b.respondError(i, fmt.Sprintf("move listing to %s", target), err)
		return
	}

	b.respond(i, fmt.Sprintf("moved listing %d to %s", moved.ID, target), true)
}

func (b *Bot) handleAutocomplete(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	opts := options(data)

	var focused string
	for _, opt := range data.Options {
		if opt.Focused {
			focused = opt.Name
			break
		}
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	switch focused {
	case "id":
		for _, id := range b.reg.IDs(i.GuildID) {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  strconv.FormatInt(id, 10),
				Value: id,
			})
		}
	case "tag":
		choices = b.tagAutocomplete(i.GuildID, opts)
	}

	// Discord caps autocomplete responses at 25 choices.
	if len(choices) > 25 {
		choices = choices[:25]
	}

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		log.Printf("Bot: failed to respond to autocomplete: %v", err)
	}
}

// tagAutocomplete offers the tags not yet on the listing for ADD and the
// tags currently on it for REMOVE.
func (b *Bot) tagAutocomplete(guildID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) []*discordgo.ApplicationCommandOptionChoice {
	candidates := models.AllTags

	idOpt, hasID := opts["id"]
	modeOpt, hasMode := opts["mode"]
	if hasID && hasMode {
		if l, err := b.reg.Get(guildID, idOpt.IntValue()); err == nil {
			switch models.TagMode(modeOpt.StringValue()) {
			case models.TagModeAdd:
				candidates = nil
				for _, tag := range models.AllTags {
					if !l.HasTag(tag) {
						candidates = append(candidates, tag)
					}
				}
			case models.TagModeRemove:
				candidates = append([]models.Tag(nil), l.Tags...)
			}
		}
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(candidates))
	for i, tag := range candidates {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: string(tag), Value: string(tag)}
	}
	return choices
}
