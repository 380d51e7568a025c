// Package nowplaying keeps a single interactive status message per guild in
// sync with its continuously changing playback session.
package nowplaying

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/engine"
	"lavabot/internal/session"
)

const EmbedColor = 0xb01e66

// Control action identifiers, routed back through the component dispatcher.
const (
	ActionPrevious    = "music:previous"
	ActionPlayPause   = "music:playpause"
	ActionSkip        = "music:skip"
	ActionShuffle     = "music:shuffle"
	ActionStop        = "music:stop"
	ActionConfirmStop = "music:stop-confirm"
	ActionCancelStop  = "music:stop-cancel"
)

const (
	progressBarWidth = 18
	upcomingPreview  = 5
)

type Status string

const (
	StatusPlaying Status = "Playing"
	StatusPaused  Status = "Paused"
	StatusStopped Status = "Stopped"
)

func (status Status) StringEmoji() string {
	m := map[Status]string{
		StatusPlaying: "▶️",
		StatusPaused:  "⏸️",
		StatusStopped: "⏹️",
	}
	return m[status]
}

// Payload is everything the status message shows: one embed plus the control
// rows. Compared structurally by the throttle gate.
type Payload struct {
	Embed      *discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

// RenderNowPlaying builds the status embed for the session snapshot. Returns
// nil when nothing is playing; callers fall back to the stopped payload.
func RenderNowPlaying(snap session.Snapshot) *discordgo.MessageEmbed {
	if snap.Current == nil {
		return nil
	}
	t := snap.Current

	status := StatusPlaying
	if snap.Paused {
		status = StatusPaused
	} else if !snap.Playing {
		status = StatusStopped
	}

	var b strings.Builder
	bar := BuildProgressBar(snap.Position, t.Length, progressBarWidth)
	if t.IsStream {
		b.WriteString("🔴 live stream\n")
	} else if bar != "" {
		fmt.Fprintf(&b, "`%s / %s`\n%s\n", FormatDuration(snap.Position), FormatDuration(t.Length), bar)
	}

	if n := len(snap.Queue); n > 0 {
		b.WriteString("\n**Up next**\n")
		for i, next := range snap.Queue {
			if i >= upcomingPreview {
				fmt.Fprintf(&b, "+%d more\n", n-upcomingPreview)
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, FormatTrackTitle(next, next.RequestedAsURL))
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       status.StringEmoji() + " " + FormatTrackTitle(*t, t.RequestedAsURL),
		URL:         t.URI,
		Description: b.String(),
		Color:       EmbedColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s · Volume %d%%", status, snap.Volume),
		},
	}
	if t.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.ArtworkURL}
	}
	return embed
}

// RenderStopped is the fixed payload shown once playback has stopped. It
// carries no controls.
func RenderStopped() *Payload {
	return &Payload{
		Embed: &discordgo.MessageEmbed{
			Title: StatusStopped.StringEmoji() + " Playback Stopped",
			Color: EmbedColor,
		},
		Components: []discordgo.MessageComponent{},
	}
}

// RenderControls builds the five-button control row for the snapshot.
func RenderControls(snap session.Snapshot) []discordgo.MessageComponent {
	playPause := "⏸️"
	if snap.Paused {
		playPause = "▶️"
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Emoji:    &discordgo.ComponentEmoji{Name: "⏮️"},
					Style:    discordgo.SecondaryButton,
					CustomID: ActionPrevious,
					Disabled: snap.HistoryLen == 0,
				},
				discordgo.Button{
					Emoji:    &discordgo.ComponentEmoji{Name: playPause},
					Style:    discordgo.PrimaryButton,
					CustomID: ActionPlayPause,
				},
				discordgo.Button{
					Emoji:    &discordgo.ComponentEmoji{Name: "⏭️"},
					Style:    discordgo.SecondaryButton,
					CustomID: ActionSkip,
					Disabled: len(snap.Queue) == 0,
				},
				discordgo.Button{
					Emoji:    &discordgo.ComponentEmoji{Name: "🔀"},
					Style:    discordgo.SecondaryButton,
					CustomID: ActionShuffle,
				},
				discordgo.Button{
					Emoji:    &discordgo.ComponentEmoji{Name: "⏹️"},
					Style:    discordgo.DangerButton,
					CustomID: ActionStop,
				},
			},
		},
	}
}

// RenderConfirmStop is the two-button confirm/cancel row shown while a stop
// is pending confirmation.
func RenderConfirmStop() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Confirm Stop",
					Style:    discordgo.DangerButton,
					CustomID: ActionConfirmStop,
				},
				discordgo.Button{
					Label:    "Cancel",
					Style:    discordgo.SecondaryButton,
					CustomID: ActionCancelStop,
				},
			},
		},
	}
}

// RenderPayload is the full candidate render: embed plus controls, or the
// stopped payload when no track is installed.
func RenderPayload(snap session.Snapshot) *Payload {
	embed := RenderNowPlaying(snap)
	if embed == nil {
		return RenderStopped()
	}
	return &Payload{Embed: embed, Components: RenderControls(snap)}
}

// FormatTrackTitle prefixes the author unless the track was requested by
// direct link or the title already names the author (case-insensitively).
func FormatTrackTitle(t engine.Track, requestedAsURL bool) string {
	if requestedAsURL || t.Author == "" {
		return t.Title
	}
	if strings.Contains(strings.ToLower(t.Title), strings.ToLower(t.Author)) {
		return t.Title
	}
	return t.Author + " - " + t.Title
}

// FormatDuration renders a duration as MM:SS. Minutes are not rolled into
// hours at this layer.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// BuildProgressBar renders a fixed-width glyph bar. A non-positive total
// yields an empty string rather than dividing by zero.
func BuildProgressBar(position, total time.Duration, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	filled := int(float64(position) / float64(total) * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
}
