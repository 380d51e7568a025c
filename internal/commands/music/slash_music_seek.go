package music

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
)

type SeekCommand struct {
	Bot command.BotMusic
}

func (c *SeekCommand) Name() string        { return "music-seek" }
func (c *SeekCommand) Description() string { return "Seek within the current track (mm:ss or seconds)" }
func (c *SeekCommand) Group() string       { return "music" }
func (c *SeekCommand) Category() string    { return "🎵 Music" }

func (c *SeekCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "position",
				Description: "Target position, e.g. 1:30 or 90",
				Required:    true,
			},
		},
	}
}

func (c *SeekCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*command.SlashInteractionContext)
	if !ok {
		return nil
	}

	session := context.Session
	event := context.Event

	if err := command.DeferRespond(session, event); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	var raw string
	for _, opt := range event.ApplicationCommandData().Options {
		if opt.Name == "position" {
			raw = opt.StringValue()
		}
	}

	position, err := parsePosition(raw)
	if err != nil {
		followupError(session, event, "%s", err.Error())
		return nil
	}

	sess, err := activeSession(c.Bot, event.GuildID)
	if err != nil {
		followupError(session, event, "%s", err.Error())
		return nil
	}

	current := sess.Current()
	if current == nil {
		followupError(session, event, "nothing is playing")
		return nil
	}
	if current.IsStream {
		followupError(session, event, "cannot seek in a live stream")
		return nil
	}
	if position > current.Length {
		position = current.Length
	}

	reqCtx, cancel := commandContext()
	defer cancel()

	if err := sess.Player().Seek(reqCtx, position); err != nil {
		followupError(session, event, "failed to seek: %v", err)
		return nil
	}
	sess.SetPosition(position)

	_ = c.Bot.Manager().Refresh(sess, event.ChannelID, true)
	_ = command.FollowupContent(session, event, fmt.Sprintf("⏩ Jumped to **%02d:%02d**", int(position.Minutes()), int(position.Seconds())%60))
	return nil
}

// parsePosition accepts "mm:ss", "hh:mm:ss" or a plain number of seconds.
func parsePosition(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("position is required")
	}

	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid position %q", raw)
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid position %q", raw)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}
