package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"lavabot/internal/config"
	"lavabot/internal/discord"
	"lavabot/internal/lavalink"
	"lavabot/internal/monitor"
	"lavabot/internal/nowplaying"
	"lavabot/internal/session"
	"lavabot/internal/storage"
	v "lavabot/internal/version"
)

func main() {
	log.Printf("[INFO] Starting %v bot...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.New()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	bot, err := discord.NewBot(cfg, store)
	if err != nil {
		log.Fatal(err)
	}

	eng := lavalink.NewClient(cfg, bot)
	sessions := session.NewRegistry()
	manager := nowplaying.NewManager(cfg, bot.Transport(), sessions)
	mon := monitor.New(cfg, eng, sessions, manager, bot)
	cleanup := monitor.NewCleanup(cfg, eng, sessions, bot.Transport(), bot)
	bot.Wire(eng, sessions, manager, mon, cleanup)

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	case <-ctx.Done():
	}

	log.Println("[INFO] Discord bot exited cleanly")
}
