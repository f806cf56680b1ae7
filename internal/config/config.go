package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dkeye/Poker/internal/core"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Rules struct {
	AllowVoteAfterReveal bool `mapstructure:"allow_vote_after_reveal"`
	HideVotes            bool `mapstructure:"hide_votes"`
	RequireName          bool `mapstructure:"require_name"`
	NotifyRejections     bool `mapstructure:"notify_rejections"`
}

type RateLimit struct {
	Events   int           `mapstructure:"events"`
	Interval time.Duration `mapstructure:"interval"`
}

type Backpressure struct {
	Kick bool `mapstructure:"kick"`
}

type Config struct {
	Mode        string        `mapstructure:"mode"`
	Port        int           `mapstructure:"port"`
	ReadLimit   int64         `mapstructure:"read_limit"`
	PingPeriod  time.Duration `mapstructure:"ping_period"`
	PongWait    time.Duration `mapstructure:"pong_wait"`
	WriteWait   time.Duration `mapstructure:"write_wait"`
	SendBuffer  int           `mapstructure:"send_buffer"`
	CORSOrigins []string      `mapstructure:"cors_origins"`

	RateLimit    RateLimit    `mapstructure:"rate_limit"`
	Rules        Rules        `mapstructure:"rules"`
	Backpressure Backpressure `mapstructure:"backpressure"`
}

// CoreRules are the room-level switches.
func (c *Config) CoreRules() core.Rules {
	return core.Rules{
		AllowVoteAfterReveal: c.Rules.AllowVoteAfterReveal,
		HideVotes:            c.Rules.HideVotes,
	}
}

// RegisterFlags adds the command line overrides understood by Load.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config-env", "", "config file suffix: config/config.<env>.yaml (default $CONFIG_ENV or dev)")
	fs.Int("port", 0, "listen port")
	fs.String("mode", "", "gin mode: debug, release or test")
}

func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("POKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("port", "POKER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind port env: %w", err)
	}

	env := os.Getenv("CONFIG_ENV")
	if flags != nil {
		if f := flags.Lookup("config-env"); f != nil && f.Changed {
			env = f.Value.String()
		}
		for _, key := range []string{"port", "mode"} {
			if f := flags.Lookup(key); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetDefault("mode", "release")
	v.SetDefault("port", 3001)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit.events", 20)
	v.SetDefault("rate_limit.interval", "1s")
	v.SetDefault("rules.allow_vote_after_reveal", true)
	v.SetDefault("rules.hide_votes", false)
	v.SetDefault("rules.require_name", false)
	v.SetDefault("rules.notify_rejections", false)
	v.SetDefault("backpressure.kick", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.PongWait <= cfg.PingPeriod {
		return nil, fmt.Errorf("pong_wait (%s) must exceed ping_period (%s)", cfg.PongWait, cfg.PingPeriod)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Strs("cors", cfg.CORSOrigins).Bool("late_votes", cfg.Rules.AllowVoteAfterReveal).Msg("config ready")
	return &cfg, nil
}
