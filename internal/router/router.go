package router

import (
	"fmt"
	"log"

	"listing-bot/internal/chat"
	"listing-bot/internal/models"
	"listing-bot/internal/registry"
)

// Router moves listing representations between the status channels. Any
// status may move to any other; a move is delete-then-recreate because chat
// messages cannot change channels in place.
type Router struct {
	reg  *registry.Registry
	chat chat.Client
}

// New creates a router over the registry and chat client.
func New(reg *registry.Registry, chatClient chat.Client) *Router {
	return &Router{reg: reg, chat: chatClient}
}

// Move transitions the listing represented by messageID to the target
// status:
//  1. destroy the current representation (best-effort)
//  2. create a new one in the target channel from the current render
//  3. update the listing's handle
//  4. snapshot
//
// When step 2 fails the listing is left without representation and the
// snapshot records that; reload reconciles it. The moved listing is returned
// on success.
func (rt *Router) Move(guildID, messageID string, target models.Status) (*models.Listing, error) {
	var moved *models.Listing

	err := rt.reg.UpdateByMessage(guildID, messageID, func(l *models.Listing, cs *registry.ChannelSet) error {
		if l.HasRepresentation() {
			if err := rt.chat.DeleteMessage(l.ChannelID, l.MessageID); err != nil {
				log.Printf("Router: old representation of listing %d already gone: %v", l.ID, err)
			}
		}

		newID, err := rt.chat.CreateMessage(cs.For(target), l.Render())
		if err != nil {
			l.ClearRepresentation()
			return fmt.Errorf("%w: create in %q: %v", registry.ErrRepresentationGone, target, err)
		}

		l.SetRepresentation(cs.For(target), newID)
		moved = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}
