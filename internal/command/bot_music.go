package command

import (
	"lavabot/internal/config"
	"lavabot/internal/engine"
	"lavabot/internal/nowplaying"
)

// BotMusic is the surface the Discord bot exposes to music commands.
type BotMusic interface {
	Manager() *nowplaying.Manager
	Engine() engine.Engine
	Config() *config.Config
	FindUserVoiceState(guildID, userID string) (*VoiceState, error)
}

type VoiceState struct {
	ChannelID string
	UserID    string
}
