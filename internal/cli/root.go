// Package cli implements the prestotype command line.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	presto "github.com/ethanyzhang/prestotype"
	"github.com/ethanyzhang/prestotype/internal/config"
	"github.com/ethanyzhang/prestotype/prestoauth/kerberos"
	"github.com/ethanyzhang/prestotype/prestoauth/oauth2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// app is the state shared by all commands of one invocation.
type app struct {
	configFile string
	cfg        *config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "prestotype",
		Short: "Parse, format and inspect Presto and Trino type signatures",
		Long: `prestotype works with the type signatures used by Presto and Trino.

It parses and formats signatures offline, and with a coordinator DSN it
describes tables and creates them from YAML definitions.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(a.configFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			level, _ := cfg.Level()
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(level).With().Timestamp().Logger()
			if cfg.File != "" {
				log.Debug().Str("file", cfg.File).Msg("loaded config")
			}
			a.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./"+config.DefaultFile+")")
	flags.String("dsn", "", "coordinator DSN, e.g. presto://user@host:8080/catalog/schema")
	flags.StringP("output", "o", "", "output format (table|json|text)")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.Duration("timeout", 0, "timeout for statements sent to the coordinator")

	_ = root.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputTable, config.OutputJSON, config.OutputText}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newParseCmd(a),
		newFormatCmd(a),
		newDescribeCmd(a),
		newTableCmd(a),
		newColumnCmd(a),
		newSchemaCmd(a),
		newTablesCmd(a),
	)
	return root
}

// Execute runs the command line and reports a failure on stderr.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// connect opens a database for the configured DSN with the configured
// authentication. The returned context carries the timeout; close releases
// the database, the credentials and the context.
func (a *app) connect(ctx context.Context) (context.Context, *sql.DB, func(), error) {
	cfg := a.cfg
	if cfg.DSN == "" {
		return nil, nil, nil, errors.New("no dsn configured; set --dsn, PRESTOTYPE_DSN or dsn in the config file")
	}

	var (
		opts    []presto.ConnectorOption
		closers []io.Closer
	)
	switch {
	case cfg.Auth.OAuth2.Enabled():
		opt, err := oauth2.NewRequestOption(ctx, cfg.Auth.OAuth2)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, presto.WithRequestOptions(opt))
	case cfg.Auth.Kerberos.Enabled():
		auth, err := kerberos.Login(cfg.Auth.Kerberos)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, presto.WithRequestOptions(auth.RequestOption()))
		closers = append(closers, auth)
	}

	connector, err := presto.NewConnector(cfg.DSN, opts...)
	if err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, nil, nil, err
	}
	db := sql.OpenDB(connector)

	cancel := func() {}
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
	}
	closeAll := func() {
		cancel()
		if err := db.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close database")
		}
		for _, c := range closers {
			_ = c.Close()
		}
	}
	return ctx, db, closeAll, nil
}
