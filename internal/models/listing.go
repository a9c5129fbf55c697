package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"listing-bot/internal/chat"
)

// ErrInvalidURL is returned when a listing id cannot be extracted from an
// expose URL.
var ErrInvalidURL = errors.New("invalid listing url")

// Tag は物件の評価タグ
type Tag string

const (
	TagNormal    Tag = "NORMAL"
	TagMedium    Tag = "MEDIUM"
	TagBad       Tag = "BAD"
	TagFar       Tag = "FAR"
	TagExpensive Tag = "EXPENSIVE"
)

// AllTags lists every tag in a fixed order, used for command choices.
var AllTags = []Tag{TagNormal, TagMedium, TagBad, TagFar, TagExpensive}

// ValidTag reports whether s names a known tag.
func ValidTag(s string) bool {
	switch Tag(s) {
	case TagNormal, TagMedium, TagBad, TagFar, TagExpensive:
		return true
	}
	return false
}

// TagMode selects how a tag command modifies the tag set.
type TagMode string

const (
	TagModeAdd    TagMode = "ADD"
	TagModeRemove TagMode = "REMOVE"
)

// Status は物件の進捗ステータス（ステータスチャンネル名と一致する）
type Status string

const (
	StatusNew            Status = "new"
	StatusAwaitingAnswer Status = "awaiting-answer"
	StatusAwaitingTour   Status = "awaiting-tour"
	StatusDenied         Status = "denied"
	StatusAccepted       Status = "accepted"
)

// AllStatuses lists the five routing states in display order.
var AllStatuses = []Status{StatusNew, StatusAwaitingAnswer, StatusAwaitingTour, StatusDenied, StatusAccepted}

// ValidStatus reports whether s names a known status.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusNew, StatusAwaitingAnswer, StatusAwaitingTour, StatusDenied, StatusAccepted:
		return true
	}
	return false
}

const exposeBaseURL = "https://www.immobilienscout24.de/expose/"

var exposeURLPattern = regexp.MustCompile(`^https://www\.immobilienscout24\.de/expose/(\d+)(?:[/?#].*)?$`)

// ParseListingID extracts the numeric listing id from a canonical expose URL.
func ParseListingID(rawURL string) (int64, error) {
	m := exposeURLPattern.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil || m[1] == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return id, nil
}

// Listing is one tracked real-estate unit. Its only externally visible form
// is a chat message (the representation); MessageID/ChannelID address that
// message and are empty while no representation exists.
type Listing struct {
	ID        int64      `json:"id"`
	Tags      []Tag      `json:"tags"`
	MessageID string     `json:"message"`
	ChannelID string     `json:"channel"`
	Address   string     `json:"address,omitempty"`
	TourTime  *time.Time `json:"tour_time,omitempty"`
}

// NewListing creates a listing with a single initial tag and no
// representation.
func NewListing(id int64, tag Tag) *Listing {
	return &Listing{
		ID:   id,
		Tags: []Tag{tag},
	}
}

// URL returns the canonical expose URL for the listing.
func (l *Listing) URL() string {
	return fmt.Sprintf("%s%d", exposeBaseURL, l.ID)
}

// HasTag reports whether the listing carries the tag.
func (l *Listing) HasTag(tag Tag) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends a tag; adding a tag already present is a no-op.
func (l *Listing) AddTag(tag Tag) {
	if !l.HasTag(tag) {
		l.Tags = append(l.Tags, tag)
	}
}

// RemoveTag drops a tag; removing an absent tag is a no-op.
func (l *Listing) RemoveTag(tag Tag) {
	for i, t := range l.Tags {
		if t == tag {
			l.Tags = append(l.Tags[:i], l.Tags[i+1:]...)
			return
		}
	}
}

// SetAddress updates the free-text address; empty clears it.
func (l *Listing) SetAddress(address string) {
	l.Address = address
}

// SetTourTime updates the viewing time; nil clears it.
func (l *Listing) SetTourTime(t *time.Time) {
	l.TourTime = t
}

// HasRepresentation reports whether the listing currently addresses a live
// chat message.
func (l *Listing) HasRepresentation() bool {
	return l.MessageID != "" && l.ChannelID != ""
}

// SetRepresentation points the listing at a new chat message.
func (l *Listing) SetRepresentation(channelID, messageID string) {
	l.ChannelID = channelID
	l.MessageID = messageID
}

// ClearRepresentation detaches the listing from its chat message, leaving it
// pending reconciliation.
func (l *Listing) ClearRepresentation() {
	l.ChannelID = ""
	l.MessageID = ""
}

// Render produces the display payload for the representation. Deterministic
// given the current fields; used for the first message and every re-render.
func (l *Listing) Render() chat.Message {
	names := make([]string, len(l.Tags))
	for i, t := range l.Tags {
		names[i] = string(t)
	}

	msg := chat.Message{
		Title:       l.URL(),
		Description: strings.Join(names, ","),
	}

	if l.TourTime != nil {
		msg.Fields = append(msg.Fields, chat.Field{
			Name:  "Viewing time",
			Value: l.TourTime.Format(time.RFC3339),
		})
	}
	if l.Address != "" {
		msg.Fields = append(msg.Fields, chat.Field{
			Name:  "Address",
			Value: l.Address,
		})
	}

	return msg
}
