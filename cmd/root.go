package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	configcmd "github.com/tphakala/dirmigrate/cmd/config"
	"github.com/tphakala/dirmigrate/cmd/history"
	"github.com/tphakala/dirmigrate/cmd/migrate"
	"github.com/tphakala/dirmigrate/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dirmigrate",
		Short: "Directory to SQL identity migration tool",
		Long:  "dirmigrate copies client groups and their users from an LDAP directory into a relational store, converting credentials on the way.",
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	// Add sub-commands to the root command.
	subcommands := []*cobra.Command{
		migrate.Command(settings),
		history.Command(settings),
		configcmd.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Sync the settings struct with viper's values so that command line
		// arguments take precedence over the config file.
		conf.SyncViper(settings)
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
