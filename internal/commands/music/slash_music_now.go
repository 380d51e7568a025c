package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
)

type NowPlayingCommand struct {
	Bot command.BotMusic
}

func (c *NowPlayingCommand) Name() string        { return "music-now" }
func (c *NowPlayingCommand) Description() string { return "Repost or refresh the player message" }
func (c *NowPlayingCommand) Group() string       { return "music" }
func (c *NowPlayingCommand) Category() string    { return "🎵 Music" }

func (c *NowPlayingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *NowPlayingCommand) Run(ctx interface{}) error {
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

	// Only one manual repost at a time; concurrent presses would race on
	// the delete-and-recreate below.
	if !sess.BeginManualRefresh() {
		_ = command.FollowupContent(session, event, "🎵 Refresh already in progress.")
		return nil
	}
	defer sess.EndManualRefresh()

	if err := c.Bot.Manager().Repost(sess, event.ChannelID); err != nil {
		followupError(session, event, "failed to repost player: %v", err)
		return nil
	}

	_ = command.FollowupContent(session, event, "🎶 Player refreshed.")
	return nil
}
