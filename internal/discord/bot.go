// Package discord wires the bot together: gateway session, slash command
// routing, component dispatch into the player UI, and the engine event loop.
package discord

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"lavabot/internal/command"
	_ "lavabot/internal/commands"
	musiccmd "lavabot/internal/commands/music"
	"lavabot/internal/config"
	"lavabot/internal/engine"
	"lavabot/internal/lavalink"
	"lavabot/internal/monitor"
	"lavabot/internal/nowplaying"
	"lavabot/internal/session"
	"lavabot/internal/storage"
)

// Bot is a Discord bot
type Bot struct {
	dg        *discordgo.Session
	cfg       *config.Config
	storage   *storage.Storage
	transport *Transport

	eng      *lavalink.Client
	sessions *session.Registry
	manager  *nowplaying.Manager
	monitor  *monitor.Monitor
	cleanup  *monitor.Cleanup
}

// NewBot creates the gateway session; nothing is opened yet.
func NewBot(cfg *config.Config, store *storage.Storage) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{
		dg:      dg,
		cfg:     cfg,
		storage: store,
	}
	b.transport = NewTransport(dg, cfg.CollectorTTL)
	return b, nil
}

// Transport exposes the message adapter so the UI manager can be built on it.
func (b *Bot) Transport() *Transport {
	return b.transport
}

// Wire attaches the engine-side collaborators. Must run before Run.
func (b *Bot) Wire(eng *lavalink.Client, sessions *session.Registry, manager *nowplaying.Manager, mon *monitor.Monitor, cleanup *monitor.Cleanup) {
	b.eng = eng
	b.sessions = sessions
	b.manager = manager
	b.monitor = mon
	b.cleanup = cleanup
}

// Manager implements command.BotMusic.
func (b *Bot) Manager() *nowplaying.Manager { return b.manager }

// Engine implements command.BotMusic.
func (b *Bot) Engine() engine.Engine { return b.eng }

// Config implements command.BotMusic.
func (b *Bot) Config() *config.Config { return b.cfg }

// Run opens the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.configureIntents()
	b.registerMusicCommands()

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)
	b.dg.AddHandler(b.onVoiceServerUpdate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	go b.handleEngineEvents(ctx)

	<-ctx.Done()
	log.Println("[INFO] ❎ Shutdown signal received. Cleaning up...")
	b.shutdown()
	return nil
}

// configureIntents configures the Discord intents
func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates
}

// registerMusicCommands registers the music commands
func (b *Bot) registerMusicCommands() {
	for _, cmd := range []command.Command{
		&musiccmd.PlayCommand{Bot: b},
		&musiccmd.PauseCommand{Bot: b},
		&musiccmd.SkipCommand{Bot: b},
		&musiccmd.PreviousCommand{Bot: b},
		&musiccmd.StopCommand{Bot: b},
		&musiccmd.ShuffleCommand{Bot: b},
		&musiccmd.VolumeCommand{Bot: b},
		&musiccmd.SeekCommand{Bot: b},
		&musiccmd.QueueCommand{Bot: b},
		&musiccmd.JumpCommand{Bot: b},
		&musiccmd.NowPlayingCommand{Bot: b},
	} {
		command.RegisterCommand(
			command.ApplyMiddlewares(
				cmd,
				command.WithGuildOnly(),
				command.WithCommandLogger(),
			),
		)
	}
}

// onReady is called when the bot is ready
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	botInfo, err := s.User("@me")
	if err != nil {
		log.Println("[WARN] Error retrieving bot user:", err)
		return
	}

	b.eng.SetUserID(botInfo.ID)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.eng.Start(startCtx); err != nil {
		log.Println("[ERR] Failed to connect to audio node:", err)
	}

	if b.cfg.InitSlashCommands {
		for _, g := range r.Guilds {
			if err := b.registerCommands(g.ID); err != nil {
				log.Println("[ERR] Error registering slash commands for guild", g.ID, ":", err)
			}
		}
	} else {
		log.Println("[INFO] Registering slash commands skipped")
	}

	b.monitor.Start()
	b.cleanup.Start()

	log.Printf("[INFO] ✅ Discord bot %v is running.", botInfo.Username)
}

// onGuildCreate is called when a guild is created
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Printf("[INFO] Bot added to guild: %s (%s)", g.Guild.ID, g.Guild.Name)

	if err := b.registerCommands(g.Guild.ID); err != nil {
		log.Printf("[ERR] Failed to register commands for new guild %s: %v", g.Guild.ID, err)
	}
}

// onInteractionCreate is called when an interaction is created
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		cmdName := i.ApplicationCommandData().Name

		cmd, ok := command.GetCommand(cmdName)
		if !ok {
			log.Printf("[WARN] Unknown command: %s\n", cmdName)
			return
		}

		ctx := &command.SlashInteractionContext{
			Session: s,
			Event:   i,
			Storage: b.storage,
		}
		if err := cmd.Run(ctx); err != nil {
			log.Println("[ERR] Error running slash command:", err)
		}

	case discordgo.InteractionMessageComponent:
		// Button presses on the player message. Acknowledge immediately so
		// the press never shows as failed, then route by message ID.
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		}); err != nil {
			log.Printf("[WARN] Failed to ack component interaction: %v", err)
		}

		if i.Message == nil {
			return
		}
		customID := i.MessageComponentData().CustomID
		if !b.transport.Dispatch(i.Message.ID, customID) {
			log.Printf("[DEBUG] No collector for component press %s on message %s", customID, i.Message.ID)
		}
	}
}

// onVoiceStateUpdate tracks the bot's own voice moves and forwards session
// ids to the audio engine.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}

	b.eng.HandleVoiceStateUpdate(v.GuildID, v.SessionID)

	sess, ok := b.sessions.Get(v.GuildID)
	if !ok {
		return
	}

	if v.ChannelID == "" {
		// Kicked from voice or moved out; tear the session down.
		log.Printf("[INFO] [Voice] Bot left voice in guild %s, tearing down session", v.GuildID)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.manager.PerformStop(ctx, sess); err != nil {
			log.Printf("[WARN] [Voice] Teardown stop failed for guild %s: %v", v.GuildID, err)
		}
		if err := b.eng.DestroyPlayer(ctx, v.GuildID); err != nil {
			log.Printf("[WARN] [Voice] Player destroy failed for guild %s: %v", v.GuildID, err)
		}
		b.sessions.Remove(v.GuildID)
		return
	}

	sess.SetVoiceChannel(v.ChannelID, true)
}

// onVoiceServerUpdate forwards voice server credentials to the audio engine.
func (b *Bot) onVoiceServerUpdate(s *discordgo.Session, v *discordgo.VoiceServerUpdate) {
	b.eng.HandleVoiceServerUpdate(v.GuildID, v.Token, v.Endpoint)
}

// handleEngineEvents is the single consumer of the engine event bus.
func (b *Bot) handleEngineEvents(ctx context.Context) {
	for {
		select {
		case evt, ok := <-b.eng.Events():
			if !ok {
				return
			}
			b.dispatchEngineEvent(evt)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bot) dispatchEngineEvent(evt engine.Event) {
	switch evt.Type {
	case engine.EventTrackStart:
		b.manager.HandleTrackStart(evt.GuildID, evt.Track)
	case engine.EventTrackEnd:
		b.manager.HandleTrackEnd(evt.GuildID, evt.Track, evt.Reason)
	case engine.EventTrackException:
		b.manager.HandleTrackException(evt.GuildID, evt.Track, evt.Reason)
	case engine.EventQueueEnd:
		b.manager.HandleQueueEnd(evt.GuildID)
	case engine.EventNodeConnect:
		b.monitor.HandleNodeUp()
	case engine.EventNodeDisconnect, engine.EventNodeError, engine.EventNodeDestroy:
		reason := evt.Reason
		if reason == "" && evt.Err != nil {
			reason = evt.Err.Error()
		}
		b.monitor.HandleNodeDown(reason)
	}
}

// registerCommands registers slash commands for one guild in a single
// bulk-overwrite call.
func (b *Bot) registerCommands(guildID string) error {
	var appID string
	if b.dg.State.User != nil {
		appID = b.dg.State.User.ID
	}
	if appID == "" {
		user, err := b.dg.User("@me")
		if err != nil {
			return err
		}
		appID = user.ID
	}

	var wanted []*discordgo.ApplicationCommand
	for _, cmd := range command.AllCommands() {
		if def := normalizeDefinition(cmd); def != nil {
			wanted = append(wanted, def)
		}
	}

	if _, err := b.dg.ApplicationCommandBulkOverwrite(appID, guildID, wanted); err != nil {
		return fmt.Errorf("bulk overwrite failed: %w", err)
	}
	return nil
}

// normalizeDefinition normalizes a command definition
func normalizeDefinition(cmd command.Command) *discordgo.ApplicationCommand {
	if slash, ok := cmd.(command.SlashProvider); ok {
		if def := slash.SlashDefinition(); def != nil {
			if def.Type == 0 {
				def.Type = discordgo.ChatApplicationCommand
			}
			return def
		}
	}
	return nil
}

// shutdown stops background services and tears down every live session.
func (b *Bot) shutdown() {
	b.cleanup.Stop()
	b.monitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, s := range b.sessions.All() {
		if err := b.manager.PerformStop(ctx, s); err != nil {
			log.Printf("[WARN] Shutdown stop failed for guild %s: %v", s.GuildID, err)
		}
		if err := b.eng.DestroyPlayer(ctx, s.GuildID); err != nil {
			log.Printf("[WARN] Shutdown player destroy failed for guild %s: %v", s.GuildID, err)
		}
		b.sessions.Remove(s.GuildID)
	}
}
