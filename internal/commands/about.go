package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
	"lavabot/internal/nowplaying"
	"lavabot/internal/version"
)

type AboutCommand struct{}

func (c *AboutCommand) Name() string        { return "about" }
func (c *AboutCommand) Description() string { return "Shows info about the bot." }
func (c *AboutCommand) Group() string       { return "" }
func (c *AboutCommand) Category() string    { return "Information" }

func (c *AboutCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *AboutCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*command.SlashInteractionContext)
	if !ok {
		return nil
	}

	buildDate := "unknown"
	if version.BuildDate != "" {
		if t, err := time.Parse(time.RFC3339, version.BuildDate); err == nil {
			buildDate = t.Format("2006-01-02")
		}
	}

	goVer := strings.TrimPrefix(version.GoVersion, "go")

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("ℹ️ About %s", version.AppName),
		Description: "Queue-based music playback with a live player message.",
		Color:       nowplaying.EmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Release", Value: fmt.Sprintf("%s (Go %s)", buildDate, goVer)},
		},
	}
	if version.GitCommit != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Commit", Value: version.GitCommit,
		})
	}

	return context.Session.InteractionRespond(context.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func init() {
	command.RegisterCommand(
		command.ApplyMiddlewares(
			&AboutCommand{},
			command.WithCommandLogger(),
		),
	)
}
