package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
)

// app carries the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	output  string
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "smartconverter",
		Short: "PDF and image tools for local files",
		Long: `smartconverter merges, splits, compresses, watermarks and protects PDFs,
turns images into PDFs and resizes, compresses and converts images.

Outputs are named <tool>-smartconverter-<input name> and written to the
current directory unless --output or --output-dir say otherwise. Each run
counts against a daily limit (two by default) unless --unlimited is set.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ~/.config/smartconverter/config.yaml)")
	pf.StringVarP(&a.output, "output", "o", "", "output file (default: derived from the first input)")
	pf.String("output-dir", ".", "directory for outputs")
	pf.Bool("unlimited", false, "do not count this run against the daily limit")
	pf.String("usage-db", "", "usage database (default: usage.db in the XDG data directory)")
	pf.Int("limit", limiter.DefaultLimit, "conversions per day; 0 disables the limit")
	pf.String("timezone", "", "IANA time zone in which the daily limit resets (default: local)")
	for _, name := range []string{"output-dir", "unlimited", "usage-db", "limit", "timezone"} {
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}

	cmd.AddCommand(a.pdfCommands()...)
	cmd.AddCommand(
		a.newImageCmd(),
		newToolsCmd(),
		a.newUsageCmd(),
		newVersionCmd(),
	)
	return cmd
}

// initConfig layers the config file and SMARTCONVERTER_* variables under
// the command line flags.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(filepath.Join(xdg.ConfigHome, "smartconverter"))
	}

	a.v.SetEnvPrefix("SMARTCONVERTER")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// openLimiter opens the local usage store. The caller closes it.
func (a *app) openLimiter() (*limiter.Limiter, func() error, error) {
	loc, err := limiter.LoadLocation(a.v.GetString("timezone"))
	if err != nil {
		return nil, nil, fmt.Errorf("timezone: %w", err)
	}
	store, err := limiter.OpenSQLite(a.v.GetString("usage-db"))
	if err != nil {
		return nil, nil, err
	}
	return limiter.New(store, a.v.GetInt("limit"), loc), store.Close, nil
}
