package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/vulnscan/internal/config"
)

var flagShowDefaults bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vulnscan configuration",
}

// editConfigFile loads the config file over defaults, applies fn, validates
// and writes the result back.
func editConfigFile(fn func(*config.Config) error) (string, error) {
	path, err := config.ConfigPath()
	if err != nil {
		return "", err
	}
	cfg := config.Default()
	if err := config.LoadFile(path, &cfg); err != nil {
		return "", err
	}
	if err := fn(&cfg); err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if err := config.Save(cfg); err != nil {
		return "", fmt.Errorf("saving config: %w", err)
	}
	return path, nil
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Config file already exists at %s\n", path)
			return nil
		}
		if _, err := editConfigFile(func(*config.Config) error { return nil }); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration value",
	Long: "Set one configuration value in the config file. Nested keys use dots and lists are " +
		"comma-separated.\n\nKeys: " + strings.Join(config.Keys, ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		path, err := editConfigFile(func(cfg *config.Config) error {
			return config.SetField(cfg, key, value)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s = %s (%s)\n", key, value, path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if !flagShowDefaults {
			var err error
			if cfg, err = config.Load(nil); err != nil {
				fail(err)
				return nil
			}
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, path)
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&flagShowDefaults, "defaults", false, "Show built-in defaults, ignoring file and environment")
	configCmd.AddCommand(configInitCmd, configSetCmd, configShowCmd, configPathCmd)
}
