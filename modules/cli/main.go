package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lkarlslund/pathcost/modules/ui"
	"github.com/lkarlslund/pathcost/modules/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	Root = &cobra.Command{
		Use:              "pathcost",
		Short:            version.VersionStringShort(),
		Long:             "Computes the cost of reaching every attack step in batches of AND/OR attack graphs",
		SilenceErrors:    true,
		SilenceUsage:     true,
		TraverseChildren: true,
	}
	prerunhooks []func(cmd *cobra.Command, args []string) error

	loglevel = Root.Flags().String("loglevel", "info", "Console log level")

	logfile      = Root.Flags().String("logfile", "", "File to log to as JSON lines, {timestamp} is replaced by the date")
	logfilelevel = Root.Flags().String("logfilelevel", "info", "Log file log level")
	logzerotime  = Root.Flags().Bool("logzerotime", false, "Logged timestamps start from zero when program launches")

	// also available for subcommands
	Datapath = Root.Flags().String("datapath", "data", "Folder to store run history, profiles and configuration in")

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show pathcost version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.Info().Msg(version.ProgramVersionShort())
			return nil
		},
	}
)

func bindFlags(cmd *cobra.Command) {
	apply := func(f *pflag.Flag) {
		// only fill in flags the user did not set
		if f.Changed || !viper.IsSet(f.Name) {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(viper.GetStringSlice(f.Name))
		} else {
			f.Value.Set(viper.GetString(f.Name))
		}
	}
	cmd.PersistentFlags().VisitAll(apply)
	cmd.Flags().VisitAll(apply)
	for _, subCommand := range cmd.Commands() {
		bindFlags(subCommand)
	}
}

func loadConfiguration(cmd *cobra.Command) {
	viper.SetEnvPrefix("PATHCOST")
	viper.AutomaticEnv()

	configfilename := filepath.Join(*Datapath, "configuration.yaml")
	viper.SetConfigFile(configfilename)
	if err := viper.ReadInConfig(); err == nil {
		ui.Info().Msgf("Using configuration file: %v", viper.ConfigFileUsed())
	} else {
		ui.Debug().Msgf("No settings loaded from %v: %v", configfilename, err.Error())
	}

	bindFlags(cmd)
}

func init() {
	cobra.OnInitialize(func() {
		loadConfiguration(Root)
	})

	Root.AddCommand(versionCmd)
	Root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		ui.Zerotime = *logzerotime

		ll, err := ui.LogLevelString(*loglevel)
		if err != nil {
			ui.Error().Msgf("Invalid log level: %v - use one of: %v", *loglevel, ui.LogLevelStrings())
		} else {
			ui.SetLoglevel(ll)
		}

		if *logfile != "" {
			*logfile = strings.Replace(*logfile, "{timestamp}", time.Now().Format(time.DateOnly), 1)

			ll, err = ui.LogLevelString(*logfilelevel)
			if err != nil {
				ui.Error().Msgf("Invalid log file log level: %v - use one of: %v", *logfilelevel, ui.LogLevelStrings())
			} else if err = ui.SetLogFile(*logfile, ll); err != nil {
				return err
			}
		} else {
			ui.SetLogFile("", ui.LevelInfo) // stop buffering early output
		}

		ui.Debug().Msg(version.VersionString())

		if _, err := os.Stat(*Datapath); os.IsNotExist(err) {
			if err = os.MkdirAll(*Datapath, 0711); err != nil {
				return fmt.Errorf("could not create data folder %v: %w", *Datapath, err)
			}
		}

		if err = startProfilers(); err != nil {
			return err
		}

		for _, prerunhook := range prerunhooks {
			if err := prerunhook(cmd, args); err != nil {
				return fmt.Errorf("prerun hook failed: %w", err)
			}
		}
		return nil
	}
	Root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		stopProfilers()
		return nil
	}
}

func AddPreRunHook(f func(cmd *cobra.Command, args []string) error) {
	prerunhooks = append(prerunhooks, f)
}

func Run() error {
	err := Root.Execute()
	if err == nil {
		ui.Debug().Msgf("Terminating successfully")
	}
	return err
}
