package music

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
)

type StopCommand struct {
	Bot command.BotMusic
}

func (c *StopCommand) Name() string        { return "music-stop" }
func (c *StopCommand) Description() string { return "Stop playback, clear the queue and leave voice" }
func (c *StopCommand) Group() string       { return "music" }
func (c *StopCommand) Category() string    { return "🎵 Music" }

func (c *StopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *StopCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*command.SlashInteractionContext)
	if !ok {
		return nil
	}

	session := context.Session
	event := context.Event
	guildID := event.GuildID

	if err := command.DeferRespond(session, event); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	sess, err := activeSession(c.Bot, guildID)
	if err != nil {
		followupError(session, event, "%s", err.Error())
		return nil
	}

	reqCtx, cancel := commandContext()
	defer cancel()

	if err := c.Bot.Manager().PerformStop(reqCtx, sess); err != nil {
		log.Printf("[WARN] Stop for guild %s finished with: %v", guildID, err)
	}
	if err := c.Bot.Engine().Disconnect(reqCtx, guildID); err != nil {
		log.Printf("[WARN] Voice disconnect for guild %s failed: %v", guildID, err)
	}
	if err := c.Bot.Engine().DestroyPlayer(reqCtx, guildID); err != nil {
		log.Printf("[WARN] Player destroy for guild %s failed: %v", guildID, err)
	}
	c.Bot.Manager().Sessions().Remove(guildID)

	embed := &discordgo.MessageEmbed{
		Description: "⏹️ Playback stopped. Queue cleared.",
	}
	_ = command.FollowupEmbed(session, event, embed)
	return nil
}
