package discord

import (
	"fmt"
	"log"

	"lavabot/internal/command"
)

// FindUserVoiceState finds the voice state of a user
func (b *Bot) FindUserVoiceState(guildID, userID string) (*command.VoiceState, error) {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("error retrieving guild: %w", err)
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return &command.VoiceState{
				ChannelID: vs.ChannelID,
				UserID:    vs.UserID,
			}, nil
		}
	}
	return nil, fmt.Errorf("user not in any voice channel")
}

// JoinVoice moves the bot into a voice channel via a raw gateway update. The
// audio itself flows through the remote engine node, so no local voice
// connection is established.
func (b *Bot) JoinVoice(guildID, channelID string) error {
	return b.dg.ChannelVoiceJoinManual(guildID, channelID, false, true)
}

// LeaveVoice clears the bot's voice channel via the gateway.
func (b *Bot) LeaveVoice(guildID string) error {
	return b.dg.ChannelVoiceJoinManual(guildID, "", false, true)
}

// DisconnectVoice is the fallback disconnect path: it tears down any locally
// tracked voice connection and always pushes the gateway clear on top.
func (b *Bot) DisconnectVoice(guildID string) error {
	b.dg.RLock()
	vc, ok := b.dg.VoiceConnections[guildID]
	b.dg.RUnlock()
	if ok {
		if err := vc.Disconnect(); err != nil {
			log.Printf("[WARN] [Voice] Local voice disconnect failed for guild %s: %v", guildID, err)
		}
	}
	return b.LeaveVoice(guildID)
}

// GuildExists reports whether the bot is still a member of the guild.
func (b *Bot) GuildExists(guildID string) bool {
	_, err := b.dg.State.Guild(guildID)
	return err == nil
}

// BotInVoiceChannel reports whether the bot currently sits in the given
// voice channel, according to gateway state.
func (b *Bot) BotInVoiceChannel(guildID, channelID string) bool {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return false
	}
	botID := ""
	if b.dg.State.User != nil {
		botID = b.dg.State.User.ID
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == botID && vs.ChannelID == channelID {
			return true
		}
	}
	return false
}
