package music

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
	"lavabot/internal/nowplaying"
)

const queueListLimit = 10

type QueueCommand struct {
	Bot command.BotMusic
}

func (c *QueueCommand) Name() string        { return "music-queue" }
func (c *QueueCommand) Description() string { return "Show played, current and upcoming tracks" }
func (c *QueueCommand) Group() string       { return "music" }
func (c *QueueCommand) Category() string    { return "🎵 Music" }

func (c *QueueCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *QueueCommand) Run(ctx interface{}) error {
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

	snap := sess.Snapshot()
	history := sess.History()

	var b strings.Builder

	if len(history) > 0 {
		start := 0
		if len(history) > queueListLimit {
			start = len(history) - queueListLimit
		}
		for i := start; i < len(history); i++ {
			t := history[i]
			fmt.Fprintf(&b, "`%d` %s\n", i-len(history), nowplaying.FormatTrackTitle(t, t.RequestedAsURL))
		}
	}

	if snap.Current != nil {
		fmt.Fprintf(&b, "`0` **%s** ← now\n", nowplaying.FormatTrackTitle(*snap.Current, snap.Current.RequestedAsURL))
	}

	for i, t := range snap.Queue {
		if i >= queueListLimit {
			fmt.Fprintf(&b, "…and **%d** more\n", len(snap.Queue)-queueListLimit)
			break
		}
		fmt.Fprintf(&b, "`%d` %s\n", i+1, nowplaying.FormatTrackTitle(t, t.RequestedAsURL))
	}

	if b.Len() == 0 {
		b.WriteString("Queue is empty.")
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎶 Queue",
		Description: b.String(),
		Color:       nowplaying.EmbedColor,
	}
	_ = command.FollowupEmbedEphemeral(session, event, embed)
	return nil
}
