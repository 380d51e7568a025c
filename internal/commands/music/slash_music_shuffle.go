package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
)

type ShuffleCommand struct {
	Bot command.BotMusic
}

func (c *ShuffleCommand) Name() string        { return "music-shuffle" }
func (c *ShuffleCommand) Description() string { return "Shuffle the upcoming queue" }
func (c *ShuffleCommand) Group() string       { return "music" }
func (c *ShuffleCommand) Category() string    { return "🎵 Music" }

func (c *ShuffleCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *ShuffleCommand) Run(ctx interface{}) error {
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

	sess.Shuffle()
	_ = c.Bot.Manager().Refresh(sess, event.ChannelID, true)
	_ = command.FollowupContent(session, event, "🔀 Queue shuffled.")
	return nil
}
