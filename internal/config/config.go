package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

type Config struct {
	Addr     string
	LogLevel string
	Dev      bool

	// DatabaseURL points at the card catalog. Empty runs with no cards
	// known, so every deck fails validation unless rooms skip the check.
	DatabaseURL string
	BanlistPath string

	// CorePath is the engine host binary launched once per duel.
	CorePath string
	NatsURL  string

	ListingInterval time.Duration
	EngineTimeout   time.Duration
	WriteTimeout    time.Duration
	// HandshakeTimeout bounds only the first frame. Later reads wait as
	// long as the connection answers pings.
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
}

func Default() Config {
	return Config{
		Addr:             ":8080",
		LogLevel:         "info",
		ListingInterval:  2 * time.Second,
		EngineTimeout:    5 * time.Second,
		WriteTimeout:     3 * time.Second,
		HandshakeTimeout: 60 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// Flags declares every setting. Each one can also come from the
// environment, which godotenv may have filled from a .env file.
func Flags() []cli.Flag {
	d := Default()
	return []cli.Flag{
		&cli.StringFlag{Name: "addr", Value: d.Addr, Usage: "HTTP listen address", Sources: cli.EnvVars("ADDR")},
		&cli.StringFlag{Name: "log-level", Value: d.LogLevel, Usage: "debug, info, warn or error", Sources: cli.EnvVars("LOG_LEVEL")},
		&cli.BoolFlag{Name: "dev", Usage: "console logging", Sources: cli.EnvVars("DEV")},
		&cli.StringFlag{Name: "database-url", Usage: "postgres DSN of the card catalog", Sources: cli.EnvVars("DATABASE_URL")},
		&cli.StringFlag{Name: "banlist", Usage: "banlist file", Sources: cli.EnvVars("BANLIST_PATH")},
		&cli.StringFlag{Name: "core", Usage: "duel engine host binary", Sources: cli.EnvVars("CORE_PATH")},
		&cli.StringFlag{Name: "nats-url", Usage: "publish room events to this NATS server", Sources: cli.EnvVars("NATS_URL")},
		&cli.DurationFlag{Name: "listing-interval", Value: d.ListingInterval, Usage: "room listing refresh period", Sources: cli.EnvVars("LISTING_INTERVAL")},
		&cli.DurationFlag{Name: "engine-timeout", Value: d.EngineTimeout, Usage: "deadline for each engine step", Sources: cli.EnvVars("ENGINE_TIMEOUT")},
		&cli.DurationFlag{Name: "ws-write-timeout", Value: d.WriteTimeout, Sources: cli.EnvVars("WS_WRITE_TIMEOUT")},
		&cli.DurationFlag{Name: "ws-handshake-timeout", Value: d.HandshakeTimeout, Sources: cli.EnvVars("WS_HANDSHAKE_TIMEOUT")},
		&cli.DurationFlag{Name: "ws-ping-interval", Value: d.PingInterval, Usage: "keepalive ping period", Sources: cli.EnvVars("WS_PING_INTERVAL")},
	}
}

func FromCommand(cmd *cli.Command) Config {
	return Config{
		Addr:             cmd.String("addr"),
		LogLevel:         cmd.String("log-level"),
		Dev:              cmd.Bool("dev"),
		DatabaseURL:      cmd.String("database-url"),
		BanlistPath:      cmd.String("banlist"),
		CorePath:         cmd.String("core"),
		NatsURL:          cmd.String("nats-url"),
		ListingInterval:  cmd.Duration("listing-interval"),
		EngineTimeout:    cmd.Duration("engine-timeout"),
		WriteTimeout:     cmd.Duration("ws-write-timeout"),
		HandshakeTimeout: cmd.Duration("ws-handshake-timeout"),
		PingInterval:     cmd.Duration("ws-ping-interval"),
	}
}
