package chat

import (
	"fmt"
	"sync"
)

// InMemory is a Client backed by process memory. It backs the test suites and
// the dry-run mode of cmd/bot (no Discord token configured).
type InMemory struct {
	mu         sync.Mutex
	nextID     int64
	categories map[string]string            // guildID/name -> categoryID
	channels   map[string]string            // guildID/categoryID/name -> channelID
	messages   map[string]map[string]Message // channelID -> messageID -> payload
	announced  map[string][]string          // channelID -> texts

	// CreateErr makes CreateMessage fail for specific channels, simulating
	// an unreachable platform in tests.
	CreateErr map[string]error
}

// NewInMemory creates an empty in-memory chat client.
func NewInMemory() *InMemory {
	return &InMemory{
		nextID:     1000,
		categories: make(map[string]string),
		channels:   make(map[string]string),
		messages:   make(map[string]map[string]Message),
		announced:  make(map[string][]string),
	}
}

func (m *InMemory) newID(kind string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", kind, m.nextID)
}

func (m *InMemory) CreateMessage(channelID string, msg Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.CreateErr[channelID]; ok {
		return "", err
	}
	if _, ok := m.messages[channelID]; !ok {
		m.messages[channelID] = make(map[string]Message)
	}
	id := m.newID("msg")
	m.messages[channelID][id] = msg
	return id, nil
}

func (m *InMemory) EditMessage(channelID, messageID string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.messages[channelID][messageID]; !ok {
		return ErrMessageNotFound
	}
	m.messages[channelID][messageID] = msg
	return nil
}

func (m *InMemory) DeleteMessage(channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.messages[channelID][messageID]; !ok {
		return ErrMessageNotFound
	}
	delete(m.messages[channelID], messageID)
	return nil
}

func (m *InMemory) FetchMessage(channelID, messageID string) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[channelID][messageID]
	if !ok {
		return Message{}, ErrMessageNotFound
	}
	return msg, nil
}

func (m *InMemory) Announce(channelID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.announced[channelID] = append(m.announced[channelID], text)
	return nil
}

func (m *InMemory) EnsureCategory(guildID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := guildID + "/" + name
	if id, ok := m.categories[key]; ok {
		return id, nil
	}
	id := m.newID("cat")
	m.categories[key] = id
	return id, nil
}

func (m *InMemory) EnsureTextChannel(guildID, categoryID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := guildID + "/" + categoryID + "/" + name
	if id, ok := m.channels[key]; ok {
		return id, nil
	}
	id := m.newID("chan")
	m.channels[key] = id
	return id, nil
}

// MessagesIn returns the payloads currently stored in a channel.
func (m *InMemory) MessagesIn(channelID string) map[string]Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Message, len(m.messages[channelID]))
	for id, msg := range m.messages[channelID] {
		out[id] = msg
	}
	return out
}

// Announcements returns the plain-text messages sent to a channel.
func (m *InMemory) Announcements(channelID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.announced[channelID]...)
}
