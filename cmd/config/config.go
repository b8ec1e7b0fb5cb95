package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tphakala/dirmigrate/internal/conf"
	"gopkg.in/yaml.v3"
)

// Command creates the config command for inspecting and generating configuration.
func Command(settings *conf.Settings) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the default config file or dump the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dump {
				out, err := yaml.Marshal(settings)
				if err != nil {
					return fmt.Errorf("error marshaling settings: %w", err)
				}
				fmt.Print(string(out))
				return nil
			}

			path, err := conf.CreateDefaultConfig()
			if err != nil {
				return fmt.Errorf("error creating default config: %w", err)
			}
			fmt.Println("Created default config file at:", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "Print the effective settings as YAML instead of writing a file")

	return cmd
}
