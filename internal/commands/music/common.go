package music

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
	"lavabot/internal/session"
)

const commandTimeout = 15 * time.Second

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// followupError reports a command failure on the already-deferred interaction.
func followupError(s *discordgo.Session, event *discordgo.InteractionCreate, format string, args ...interface{}) {
	_ = command.FollowupContent(s, event, fmt.Sprintf("🎵 Error: "+format, args...))
}

// activeSession returns the guild session only when it exists and has a
// player attached. Commands that operate on running playback use this
// instead of creating sessions as a side effect.
func activeSession(bot command.BotMusic, guildID string) (*session.Session, error) {
	s, ok := bot.Manager().Sessions().Get(guildID)
	if !ok || s.Player() == nil {
		return nil, fmt.Errorf("nothing is playing")
	}
	return s, nil
}
