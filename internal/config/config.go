package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

// Config carries every tunable the bot reads at startup.
type Config struct {
	DiscordToken      string `env:"DISCORD_TOKEN,required"`
	StoragePath       string `env:"STORAGE_PATH" envDefault:"datastore.json"`
	InitSlashCommands bool   `env:"INIT_SLASH_COMMANDS" envDefault:"true"`

	LavalinkHost     string `env:"LAVALINK_HOST" envDefault:"localhost"`
	LavalinkPort     int    `env:"LAVALINK_PORT" envDefault:"2333"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD" envDefault:"youshallnotpass"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`

	DefaultVolume  int `env:"DEFAULT_VOLUME" envDefault:"70"`
	MaxQueueSize   int `env:"MAX_QUEUE_SIZE" envDefault:"500"`
	MaxHistorySize int `env:"MAX_HISTORY_SIZE" envDefault:"100"`

	UIRefreshInterval   time.Duration `env:"UI_REFRESH_INTERVAL" envDefault:"3s"`
	FastRefreshInterval time.Duration `env:"FAST_REFRESH_INTERVAL" envDefault:"250ms"`
	MessageStaleAge     time.Duration `env:"MESSAGE_STALE_AGE" envDefault:"1h"`
	CollectorTTL        time.Duration `env:"COLLECTOR_TTL" envDefault:"6h"`
	StopConfirmTimeout  time.Duration `env:"STOP_CONFIRM_TIMEOUT" envDefault:"10s"`
	PauseAutoStop       time.Duration `env:"PAUSE_AUTO_STOP" envDefault:"20m"`
	SkipRefreshDelay    time.Duration `env:"SKIP_REFRESH_DELAY" envDefault:"500ms"`

	HealthFastInterval time.Duration `env:"HEALTH_FAST_INTERVAL" envDefault:"10s"`
	HealthDeepInterval time.Duration `env:"HEALTH_DEEP_INTERVAL" envDefault:"30s"`
	HealthProbeTimeout time.Duration `env:"HEALTH_PROBE_TIMEOUT" envDefault:"5s"`

	ReconnectBaseDelay   time.Duration `env:"RECONNECT_BASE_DELAY" envDefault:"5s"`
	ReconnectMaxAttempts int           `env:"RECONNECT_MAX_ATTEMPTS" envDefault:"10"`

	StaleUISweepInterval time.Duration `env:"STALE_UI_SWEEP_INTERVAL" envDefault:"30m"`
	StaleUIMaxAge        time.Duration `env:"STALE_UI_MAX_AGE" envDefault:"1h"`
	OrphanSweepInterval  time.Duration `env:"ORPHAN_SWEEP_INTERVAL" envDefault:"5m"`
}

// New parses the environment into a Config.
func New() *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		log.Fatalf("[ERR] Failed to parse environment config: %v", err)
	}
	return &cfg
}
