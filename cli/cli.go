// Package cli implements the jackrabbit command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leachuk/jackrabbit/internal/persist"
)

var rootCmd = &cobra.Command{
	Use:   "jackrabbit",
	Short: "jackrabbit is a hierarchical versioned content store",
	Long:  `jackrabbit manages a tree of addressable nodes with session-local uncommitted edits, refresh/revert, and per-node version histories`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a repository",
	Long:  "Initializes a new jackrabbit repository in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(repoDir); err == nil {
			return fmt.Errorf("repository already exists in %s", repoDir)
		}
		if err := os.MkdirAll(repoDir, 0755); err != nil {
			return fmt.Errorf("create repository directory: %w", err)
		}
		store, err := persist.Open(dbPath())
		if err != nil {
			return err
		}
		defer store.Close()
		fmt.Printf("Initialized empty repository in %s (root %s)\n", repoDir, store.RootID())
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Core commands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(treeCmd)

	// Edit commands
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)

	// Versioning commands
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(labelCmd)
}
