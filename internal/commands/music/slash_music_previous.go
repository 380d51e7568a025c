package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
)

type PreviousCommand struct {
	Bot command.BotMusic
}

func (c *PreviousCommand) Name() string        { return "music-previous" }
func (c *PreviousCommand) Description() string { return "Go back to the previously played track" }
func (c *PreviousCommand) Group() string       { return "music" }
func (c *PreviousCommand) Category() string    { return "🎵 Music" }

func (c *PreviousCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *PreviousCommand) Run(ctx interface{}) error {
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

	if sess.HistoryLen() == 0 {
		_ = command.FollowupContent(session, event, "🎵 No previously played tracks.")
		return nil
	}

	reqCtx, cancel := commandContext()
	defer cancel()

	if err := c.Bot.Manager().PlayPrevious(reqCtx, sess); err != nil {
		followupError(session, event, "%s", err.Error())
		return nil
	}

	_ = c.Bot.Manager().Refresh(sess, event.ChannelID, true)
	_ = command.FollowupContent(session, event, "⏮️ Playing previous track.")
	return nil
}
