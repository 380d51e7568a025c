package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
)

type SkipCommand struct {
	Bot command.BotMusic
}

func (c *SkipCommand) Name() string        { return "music-skip" }
func (c *SkipCommand) Description() string { return "Skip to the next track" }
func (c *SkipCommand) Group() string       { return "music" }
func (c *SkipCommand) Category() string    { return "🎵 Music" }

func (c *SkipCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *SkipCommand) Run(ctx interface{}) error {
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

	if sess.QueueLen() == 0 {
		_ = command.FollowupContent(session, event, "🎵 No tracks in queue.")
		return nil
	}

	reqCtx, cancel := commandContext()
	defer cancel()

	if err := c.Bot.Manager().PerformSkip(reqCtx, sess); err != nil {
		followupError(session, event, "%s", err.Error())
		return nil
	}

	_ = c.Bot.Manager().Refresh(sess, event.ChannelID, true)
	_ = command.FollowupContent(session, event, "⏭️ Skipped.")
	return nil
}
