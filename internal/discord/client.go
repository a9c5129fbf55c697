package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"listing-bot/internal/chat"
)

// Client implements chat.Client over a Discord session. Listings are
// represented as embeds; categories and channels are discovered before being
// created so pre-existing ones are reused.
type Client struct {
	session *discordgo.Session
}

// NewClient wraps a Discord session.
func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

func toEmbed(msg chat.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  f.Name,
			Value: f.Value,
		})
	}
	return embed
}

func fromMessage(m *discordgo.Message) chat.Message {
	if len(m.Embeds) == 0 {
		return chat.Message{Description: m.Content}
	}

	embed := m.Embeds[0]
	msg := chat.Message{
		Title:       embed.Title,
		Description: embed.Description,
	}
	for _, f := range embed.Fields {
		msg.Fields = append(msg.Fields, chat.Field{Name: f.Name, Value: f.Value})
	}
	return msg
}

// wrapNotFound maps Discord unknown-message/channel errors onto
// chat.ErrMessageNotFound so callers can reconcile instead of failing.
func wrapNotFound(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %v", chat.ErrMessageNotFound, err)
		}
	}
	return err
}

func (c *Client) CreateMessage(channelID string, msg chat.Message) (string, error) {
	m, err := c.session.ChannelMessageSendEmbed(channelID, toEmbed(msg))
	if err != nil {
		return "", wrapNotFound(err)
	}
	return m.ID, nil
}

func (c *Client) EditMessage(channelID, messageID string, msg chat.Message) error {
	_, err := c.session.ChannelMessageEditEmbed(channelID, messageID, toEmbed(msg))
	return wrapNotFound(err)
}

func (c *Client) DeleteMessage(channelID, messageID string) error {
	return wrapNotFound(c.session.ChannelMessageDelete(channelID, messageID))
}

func (c *Client) FetchMessage(channelID, messageID string) (chat.Message, error) {
	m, err := c.session.ChannelMessage(channelID, messageID)
	if err != nil {
		return chat.Message{}, wrapNotFound(err)
	}
	return fromMessage(m), nil
}

func (c *Client) Announce(channelID, text string) error {
	_, err := c.session.ChannelMessageSend(channelID, text)
	return wrapNotFound(err)
}

func (c *Client) EnsureCategory(guildID, name string) (string, error) {
	channels, err := c.session.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}

	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && ch.Name == name {
			return ch.ID, nil
		}
	}

	created, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
	})
	if err != nil {
		return "", fmt.Errorf("create category %q: %w", name, err)
	}
	return created.ID, nil
}

func (c *Client) EnsureTextChannel(guildID, categoryID, name string) (string, error) {
	channels, err := c.session.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}

	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.ParentID == categoryID && ch.Name == name {
			return ch.ID, nil
		}
	}

	created, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: categoryID,
	})
	if err != nil {
		return "", fmt.Errorf("create channel %q: %w", name, err)
	}
	return created.ID, nil
}
