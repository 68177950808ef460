// Package commands implements the platealert command line: the long-running
// service, one-shot event processing and record maintenance.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const cmdName = "platealert"

// App is the platealert command line application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig
	log    *slog.Logger
}

// New creates an App with every sub command installed.
func New() (*App, error) {
	a := App{viper: viper.New(), log: slog.Default()}

	a.cmd = &cobra.Command{
		Use:           cmdName,
		Short:         "Notify vehicle owners about plates seen in uploaded images",
		Long:          "platealert reads uploaded images, extracts license plates, looks up their owners and notifies them through a messaging topic.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			a.log = setSlog(a.viper.GetInt("verbosity"), "text")
			if err := initViperConfig(cmdName, cmd, a.viper); err != nil {
				return err
			}
			c, err := decodeConfig(a.viper)
			if err != nil {
				return err
			}
			a.config = c
			a.log = setSlog(c.Verbosity, c.Log.Format)
			a.log.Debug("got app config", "config", c.redacted())
			return nil
		},
	}
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	flags := a.cmd.PersistentFlags()
	flags.String("config", "", "use a specific configuration file")
	flags.CountP("verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	if err := a.viper.BindPFlag("verbosity", flags.Lookup("verbose")); err != nil {
		return nil, err
	}
	if err := setDefaults(a.viper, defaultConfig()); err != nil {
		return nil, fmt.Errorf("register defaults: %w", err)
	}

	for _, install := range []func() error{
		a.installServe,
		a.installProcess,
		a.installLookup,
		a.installRecords,
	} {
		if err := install(); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

// Run executes the command and associated process, returning an error if any.
func (a *App) Run() error {
	return a.cmd.Execute()
}

// UsageError reports whether the last error came from command parsing.
func (a *App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// bindFlag binds the flag named flag in fs to a configuration key.
func (a *App) bindFlag(fs *pflag.FlagSet, key, flag string) error {
	f := fs.Lookup(flag)
	if f == nil {
		return fmt.Errorf("no flag %q to bind to %s", flag, key)
	}
	return a.viper.BindPFlag(key, f)
}

// redacted returns a copy of c safe to log.
func (c appConfig) redacted() appConfig {
	if c.Records.Neo4j.Password != "" {
		c.Records.Neo4j.Password = "***"
	}
	return c
}
