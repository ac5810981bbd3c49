package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the persisted answer cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached answers older than a duration",
	Long:  `Removes answer_cache rows whose creation time is older than --older-than (e.g. 720h).`,
	Args:  cobra.NoArgs,
	RunE:  runCachePrune,
}

var cacheOlderThan time.Duration

func init() {
	cachePruneCmd.Flags().DurationVar(&cacheOlderThan, "older-than", 30*24*time.Hour, "age cutoff")
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	if d.Cache == nil {
		return errors.New("answer cache not configured")
	}
	if cacheOlderThan <= 0 {
		return errors.New("--older-than must be positive")
	}

	n, err := d.Cache.Prune(cmd.Context(), cacheOlderThan)
	if err != nil {
		return err
	}
	cmd.Printf("Pruned %d cached answers older than %s\n", n, cacheOlderThan)
	return nil
}
