package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Tier classifies who may invoke a command.
type Tier int

const (
	// Public commands run anywhere with no checks.
	Public Tier = iota
	// AuthorizedChat commands require a per-chat grant recorded by an admin.
	AuthorizedChat
	// AdminOnly commands require the sender to be a registered admin.
	AdminOnly
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// ShortName is the bare command word without the slash; it is the key
	// stored in per-chat authorization grants.
	ShortName string
	Tier      Tier
	Hidden    bool
	Aliases   []string
}
