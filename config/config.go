package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string
	}
	Database struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	JWT struct {
		Secret string
	}
	Store struct {
		// memory | redis | postgres
		Backend string
	}
	Game struct {
		ReadyTimeout  time.Duration
		SweepInterval time.Duration
		MaxRetries    int
		Seed          int64
	}
	Table struct {
		BuyIn      int64
		BigBlind   int64
		MinPlayers int
		MaxPlayers int
	}
	Match struct {
		PlayerTTL time.Duration
	}
	Log struct {
		Level string
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("store.backend", "redis")
	v.SetDefault("game.readyTimeout", 30*time.Second)
	v.SetDefault("game.sweepInterval", 5*time.Second)
	v.SetDefault("game.maxRetries", 5)
	v.SetDefault("game.seed", 0)
	v.SetDefault("table.buyIn", 1000)
	v.SetDefault("table.bigBlind", 20)
	v.SetDefault("table.minPlayers", 2)
	v.SetDefault("table.maxPlayers", 6)
	v.SetDefault("match.playerTTL", 5*time.Minute)
	v.SetDefault("log.level", "info")
}

// Load reads path (yaml), applies POKER_* environment overrides (POKER_REDIS_ADDR)
// and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("POKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("store.backend %q: want memory, redis or postgres", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the postgres backend")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Table.MinPlayers < 2 || c.Table.MaxPlayers < c.Table.MinPlayers {
		return fmt.Errorf("table players: min %d, max %d", c.Table.MinPlayers, c.Table.MaxPlayers)
	}
	if c.Table.BigBlind < 2 || c.Table.BuyIn < c.Table.BigBlind {
		return fmt.Errorf("table chips: big blind %d, buy-in %d", c.Table.BigBlind, c.Table.BuyIn)
	}
	if c.Game.MaxRetries < 1 {
		return fmt.Errorf("game.maxRetries must be positive")
	}
	return nil
}
