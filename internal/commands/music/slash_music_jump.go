package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
	"lavabot/internal/nowplaying"
)

type JumpCommand struct {
	Bot command.BotMusic
}

func (c *JumpCommand) Name() string { return "music-jump" }
func (c *JumpCommand) Description() string {
	return "Jump to a queue position (negative = history, 0 = current, positive = upcoming)"
}
func (c *JumpCommand) Group() string    { return "music" }
func (c *JumpCommand) Category() string { return "🎵 Music" }

func (c *JumpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "position",
				Description: "Queue position as shown by /music-queue",
				Required:    true,
			},
		},
	}
}

func (c *JumpCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*command.SlashInteractionContext)
	if !ok {
		return nil
	}

	session := context.Session
	event := context.Event

	if err := command.DeferRespond(session, event); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	offset := 0
	for _, opt := range event.ApplicationCommandData().Options {
		if opt.Name == "position" {
			offset = int(opt.IntValue())
		}
	}

	sess, err := activeSession(c.Bot, event.GuildID)
	if err != nil {
		followupError(session, event, "%s", err.Error())
		return nil
	}

	if offset == 0 {
		_ = command.FollowupContent(session, event, "🎵 Already on that track.")
		return nil
	}

	track := sess.Jump(offset)
	if track == nil {
		followupError(session, event, "no track at position %d", offset)
		return nil
	}

	reqCtx, cancel := commandContext()
	defer cancel()

	if err := sess.Player().Play(reqCtx, *track); err != nil {
		followupError(session, event, "failed to start playback: %v", err)
		return nil
	}
	sess.SetNowPlaying(track)

	_ = c.Bot.Manager().Refresh(sess, event.ChannelID, true)
	_ = command.FollowupContent(session, event, fmt.Sprintf("⏭️ Jumped to **%s**", nowplaying.FormatTrackTitle(*track, track.RequestedAsURL)))
	return nil
}
