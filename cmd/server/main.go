package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pmulch/gamekit/internal/config"
	"github.com/pmulch/gamekit/internal/db"
	"github.com/pmulch/gamekit/internal/server"
	"github.com/pmulch/gamekit/internal/store"
)

const releaseVersion = "0.1.0"

func main() {
	cfg := config.Default()
	cobra.CheckErr(newCmd(&cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GAMEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "gamekit-server",
		Short:         "Server for bring-your-own-device party games: shared game documents, access codes, and live sync.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", cfg.Bind, "address to bind to (env: GAMEKIT_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on (env: GAMEKIT_PORT)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres connection string, empty for in-memory only (env: GAMEKIT_DATABASE_URL)")
	fs.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "externally reachable base URL for join links (env: GAMEKIT_PUBLIC_URL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "display debug output (env: GAMEKIT_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("gamekit-server v{{.Version}}\n")

	return cmd
}

func run(cfg *config.Config) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	// Values that only arrived through the .env file are not seen by
	// viper's pre-parse env binding; overlay them here.
	env := config.Load()
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = env.DatabaseURL
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = env.PublicURL
	}

	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var conn *gorm.DB
	if cfg.DatabaseURL != "" {
		conn, err = db.OpenURL(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := db.Migrate(conn); err != nil {
			return err
		}
		log.Info("database connected")
	} else {
		log.Warn("no database configured, games will not survive restarts")
	}

	docs := store.New(conn)
	if err := docs.LoadActive(); err != nil {
		return err
	}

	srv := server.New(docs, *cfg, log)
	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	log.Info("gamekit server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, srv.Handler())
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
