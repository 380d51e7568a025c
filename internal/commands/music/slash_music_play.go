package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
	"lavabot/internal/engine"
)

type PlayCommand struct {
	Bot command.BotMusic
}

func (c *PlayCommand) Name() string        { return "music-play" }
func (c *PlayCommand) Description() string { return "Play a track, playlist or search query" }
func (c *PlayCommand) Group() string       { return "music" }
func (c *PlayCommand) Category() string    { return "🎵 Music" }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "input",
				Description: "Link to a track/playlist or a search query",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "source",
				Description: "Search source to use if a query is given",
				Required:    false,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "youtube", Value: "youtube"},
					{Name: "soundcloud", Value: "soundcloud"},
				},
			},
		},
	}
}

func (c *PlayCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*command.SlashInteractionContext)
	if !ok {
		return nil
	}

	session := context.Session
	event := context.Event

	guildID := event.GuildID
	member := event.Member

	var input, selectedSource string
	for _, opt := range event.ApplicationCommandData().Options {
		switch opt.Name {
		case "input":
			input = opt.StringValue()
		case "source":
			selectedSource = opt.StringValue()
		}
	}

	if input == "" {
		return command.RespondEphemeral(session, event, "🎵 Error: input is required")
	}

	if err := command.DeferRespond(session, event); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	voiceState, err := c.Bot.FindUserVoiceState(guildID, member.User.ID)
	if err != nil {
		followupError(session, event, "%s", err.Error())
		return nil
	}

	reqCtx, cancel := commandContext()
	defer cancel()

	result, err := c.Bot.Engine().Search(reqCtx, input, selectedSource)
	if err != nil {
		followupError(session, event, "failed to load track: %v", err)
		return nil
	}

	switch result.LoadType {
	case engine.LoadTypeError:
		followupError(session, event, "engine rejected the request: %s", result.ErrorMessage)
		return nil
	case engine.LoadTypeEmpty:
		followupError(session, event, "nothing found for `%s`", input)
		return nil
	}

	tracks := result.Tracks
	if result.LoadType == engine.LoadTypeSearch && len(tracks) > 0 {
		tracks = tracks[:1]
	}
	if len(tracks) == 0 {
		followupError(session, event, "nothing found for `%s`", input)
		return nil
	}

	cfg := c.Bot.Config()
	defaultVolume := cfg.DefaultVolume
	if context.Storage != nil {
		if v, err := context.Storage.GetDefaultVolume(guildID, cfg.DefaultVolume); err == nil {
			defaultVolume = v
		}
	}

	sess := c.Bot.Manager().Sessions().GetOrCreate(guildID, defaultVolume)
	sess.SetTextChannel(event.ChannelID)

	if sess.Player() == nil {
		sess.SetPlayer(c.Bot.Engine().CreatePlayer(guildID))
	}

	if _, connected := sess.VoiceChannel(); !connected {
		if err := c.Bot.Engine().Connect(reqCtx, guildID, voiceState.ChannelID); err != nil {
			followupError(session, event, "failed to join voice channel: %v", err)
			return nil
		}
		sess.SetVoiceChannel(voiceState.ChannelID, true)
		if p := sess.Player(); p != nil {
			_ = p.SetVolume(reqCtx, sess.Volume())
		}
	}

	added := sess.Enqueue(cfg.MaxQueueSize, tracks...)
	if added == 0 {
		followupError(session, event, "queue is full")
		return nil
	}

	if !sess.IsPlaying() && !sess.IsPaused() {
		if err := c.Bot.Manager().PlayNext(reqCtx, sess); err != nil {
			followupError(session, event, "failed to start playback: %v", err)
			return nil
		}
	}

	if err := c.Bot.Manager().Refresh(sess, event.ChannelID, false); err != nil {
		followupError(session, event, "failed to post player message: %v", err)
		return nil
	}

	switch {
	case result.LoadType == engine.LoadTypePlaylist:
		_ = command.FollowupContent(session, event, fmt.Sprintf("🎶 Added **%d** tracks from **%s**", added, result.PlaylistName))
	default:
		_ = command.FollowupContent(session, event, fmt.Sprintf("🎶 Added **%s**", tracks[0].Title))
	}

	return nil
}
