package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
)

type PauseCommand struct {
	Bot command.BotMusic
}

func (c *PauseCommand) Name() string        { return "music-pause" }
func (c *PauseCommand) Description() string { return "Pause or resume the current track" }
func (c *PauseCommand) Group() string       { return "music" }
func (c *PauseCommand) Category() string    { return "🎵 Music" }

func (c *PauseCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *PauseCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*command.SlashInteractionContext)
	if !ok {
		return nil
	}

	session := context.Session
	event := context.Event

	if err := command.DeferRespond(session, event); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	sess, err := activeSession(c.Bot, event.GuildID)
	if err != nil {
		followupError(session, event, "%s", err.Error())
		return nil
	}

	reqCtx, cancel := commandContext()
	defer cancel()

	if err := c.Bot.Manager().TogglePlayPause(reqCtx, sess); err != nil {
		followupError(session, event, "%s", err.Error())
		return nil
	}

	_ = c.Bot.Manager().Refresh(sess, event.ChannelID, true)

	if sess.IsPaused() {
		_ = command.FollowupContent(session, event, "⏸️ Paused.")
	} else {
		_ = command.FollowupContent(session, event, "▶️ Resumed.")
	}
	return nil
}
