package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/strandline/internal/cache"
	"github.com/ppiankov/strandline/internal/model"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the strand-truth cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached strand answer",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg := appConfig.Cache
		if flag := cmd.Flags().Lookup("cache-backend"); flag != nil && flag.Changed {
			cfg.Backend = flag.Value.String()
		}

		c, err := cache.New(cfg)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer func() {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close cache: %w", cerr)
			}
		}()

		if err := c.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %s cache in %s\n", cfg.Backend, cfg.Dir)
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired answers from the sqlite cache",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg := appConfig.Cache
		if cfg.Backend != model.CacheBackendSQLite {
			return fmt.Errorf("prune needs the sqlite backend (configured: %s); disk entries expire on read", cfg.Backend)
		}

		store, err := cache.NewSQLiteCache(filepath.Join(cfg.Dir, cache.SQLiteFile), cfg.TTL)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := store.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close cache: %w", cerr)
			}
		}()

		n, err := store.Prune()
		if err != nil {
			return fmt.Errorf("prune cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d expired entries\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheClearCmd.Flags().String("cache-backend", "", "cache backend (memory, disk, sqlite)")
}
