package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
)

type VolumeCommand struct {
	Bot command.BotMusic
}

func (c *VolumeCommand) Name() string        { return "music-volume" }
func (c *VolumeCommand) Description() string { return "Set playback volume (0-100)" }
func (c *VolumeCommand) Group() string       { return "music" }
func (c *VolumeCommand) Category() string    { return "🎵 Music" }

func (c *VolumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minVolume := float64(0)
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "level",
				Description: "Volume percentage",
				Required:    true,
				MinValue:    &minVolume,
				MaxValue:    100,
			},
		},
	}
}

func (c *VolumeCommand) Run(ctx interface{}) error {
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

	level := 0
	for _, opt := range event.ApplicationCommandData().Options {
		if opt.Name == "level" {
			level = int(opt.IntValue())
		}
	}

	sess, err := activeSession(c.Bot, guildID)
	if err != nil {
		followupError(session, event, "%s", err.Error())
		return nil
	}

	reqCtx, cancel := commandContext()
	defer cancel()

	sess.SetVolume(level)
	if err := sess.Player().SetVolume(reqCtx, sess.Volume()); err != nil {
		followupError(session, event, "failed to set volume: %v", err)
		return nil
	}

	if context.Storage != nil {
		if err := context.Storage.SetDefaultVolume(guildID, sess.Volume()); err != nil {
			followupError(session, event, "failed to remember volume: %v", err)
			return nil
		}
	}

	_ = c.Bot.Manager().Refresh(sess, event.ChannelID, true)
	_ = command.FollowupContent(session, event, fmt.Sprintf("🔊 Volume set to **%d%%**", sess.Volume()))
	return nil
}
