package chat

import "errors"

// ErrMessageNotFound is returned by FetchMessage when the message no longer
// exists on the platform (deleted by a user or another client).
var ErrMessageNotFound = errors.New("message not found")

// Field is a titled value rendered below a message description.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Message is the display payload of a listing representation.
type Message struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields,omitempty"`
}

// Client is the chat platform collaborator. The bot only needs these
// operations; everything else the platform offers is out of scope.
// IDs are platform channel/message identifiers (Discord snowflakes).
type Client interface {
	CreateMessage(channelID string, msg Message) (messageID string, err error)
	EditMessage(channelID, messageID string, msg Message) error
	DeleteMessage(channelID, messageID string) error
	FetchMessage(channelID, messageID string) (Message, error)

	// Announce posts a plain-text message, used by the reminder sweep.
	Announce(channelID, text string) error

	EnsureCategory(guildID, name string) (categoryID string, err error)
	EnsureTextChannel(guildID, categoryID, name string) (channelID string, err error)
}
