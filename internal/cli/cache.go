package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/vulnscan/internal/cache"
	"github.com/dshills/vulnscan/internal/config"
)

var flagExpiredOnly bool

func openCache(cfg config.Config) (*cache.Cache, error) {
	c, err := cache.Open(cache.Options{Dir: cfg.Cache.Dir, TTL: cfg.Cache.TTL()})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the model response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached model responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			fail(err)
			return nil
		}
		c, err := openCache(cfg)
		if err != nil {
			return err
		}

		remove, what := c.Clear, "entries"
		if flagExpiredOnly {
			remove, what = c.Prune, "expired entries"
		}
		n, err := remove()
		if err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Removed %d %s from %s\n", n, what, c.Dir())
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache location and size",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			fail(err)
			return nil
		}
		if !cfg.Cache.Enabled {
			fmt.Fprintln(os.Stdout, "Response cache is disabled (cache.enabled = false).")
			return nil
		}
		c, err := openCache(cfg)
		if err != nil {
			return err
		}
		stats, err := c.Stats()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	cacheClearCmd.Flags().BoolVar(&flagExpiredOnly, "expired", false, "Only remove entries past their TTL")
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheShowCmd)
}
