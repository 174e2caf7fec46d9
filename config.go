/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	metrics        bool
	port           int
	prefix         string
	profile        bool
	rateBurst      int
	rateLimit      float64
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	bot BotConfig

	log zerolog.Logger
}

type BotConfig struct {
	server           string
	room             string
	nickname         string
	countdownSeconds float64
	playingSeconds   float64
	revealSeconds    float64
	thinkTime        time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.rateLimit <= 0 || c.rateBurst < 1 {
		return fmt.Errorf("invalid rate limit (need a positive rate and a burst of at least 1): %v/%d", c.rateLimit, c.rateBurst)
	}
	return nil
}

func (b *BotConfig) validate() error {
	if b.room == "" {
		return errors.New("--room is required")
	}

	u, err := url.Parse(b.server)
	if err != nil {
		return fmt.Errorf("invalid --server: %w", err)
	}

	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("invalid --server scheme (must be http, https, ws or wss): %q", u.Scheme)
	}

	if b.thinkTime < 0 {
		return fmt.Errorf("invalid --think-time: %s", b.thinkTime)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// bindFlags lets every flag in fs fall back to its COUNTRYGRID_ variable.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("COUNTRYGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "countrygrid",
		Short:         "Relay server for Country Grid, a multiplayer country matching game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.log = newLogger(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: COUNTRYGRID_BIND)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: COUNTRYGRID_METRICS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: COUNTRYGRID_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: COUNTRYGRID_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: COUNTRYGRID_PROFILE)")
	fs.IntVar(&cfg.rateBurst, "rate-burst", 20, "frames a connection may send in a burst (env: COUNTRYGRID_RATE_BURST)")
	fs.Float64Var(&cfg.rateLimit, "rate-limit", 10, "sustained frames per second accepted from each connection (env: COUNTRYGRID_RATE_LIMIT)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are closed (env: COUNTRYGRID_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: COUNTRYGRID_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: COUNTRYGRID_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: COUNTRYGRID_VERSION)")

	pfs := cmd.PersistentFlags()
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: COUNTRYGRID_VERBOSE)")

	bindFlags(v, fs)
	bindFlags(v, pfs)

	cmd.AddCommand(newBotCmd(cfg, v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("countrygrid v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newBotCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Join a room as a headless player.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.bot.validate(); err != nil {
				return err
			}
			return RunBot(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.StringVar(&cfg.bot.server, "server", "http://localhost:8080", "base URL of the relay (env: COUNTRYGRID_SERVER)")
	fs.StringVar(&cfg.bot.room, "room", "", "room id to join (env: COUNTRYGRID_ROOM)")
	fs.StringVar(&cfg.bot.nickname, "nickname", "Bot", "nickname shown to other players (env: COUNTRYGRID_NICKNAME)")
	fs.Float64Var(&cfg.bot.countdownSeconds, "countdown-seconds", 3, "countdown length when hosting (env: COUNTRYGRID_COUNTDOWN_SECONDS)")
	fs.Float64Var(&cfg.bot.playingSeconds, "playing-seconds", 90, "round length when hosting (env: COUNTRYGRID_PLAYING_SECONDS)")
	fs.Float64Var(&cfg.bot.revealSeconds, "reveal-seconds", 10, "reveal length when hosting (env: COUNTRYGRID_REVEAL_SECONDS)")
	fs.DurationVar(&cfg.bot.thinkTime, "think-time", 1500*time.Millisecond, "delay before acting on each country (env: COUNTRYGRID_THINK_TIME)")

	bindFlags(v, fs)

	return cmd
}
