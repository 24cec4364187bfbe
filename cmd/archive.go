/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noteshelf/noteshelf/internal/services"
	"github.com/noteshelf/noteshelf/internal/storage"
	"github.com/spf13/cobra"
)

// archiveCmd groups commands that work with deleted-account archives.
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect or remove archives written when accounts are deleted",
	Long: `Archives are written to the storage bucket when an account is deleted.
Keys look like archives/{username}/{unix-nano}.json and are logged by the
server when the archive is written. Usage:

	noteshelf archive show archives/alice/1700000000000000000.json
	noteshelf archive rm archives/alice/1700000000000000000.json
`,
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print an archive as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archiver, closeFn, err := openArchiver(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		archive, err := archiver.Load(cmd.Context(), args[0])
		if errors.Is(err, services.ErrArchiveNotFound) {
			return fmt.Errorf("no archive at %s in bucket %s", args[0], archiver.Bucket())
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(archive)
	},
}

var archiveRmCmd = &cobra.Command{
	Use:   "rm <key>",
	Short: "Delete an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archiver, closeFn, err := openArchiver(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := archiver.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", args[0], archiver.Bucket())
		return nil
	},
}

// openArchiver connects to the configured bucket. The returned func closes it.
func openArchiver(cmd *cobra.Command) (*services.Archiver, func(), error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	s, err := storage.FromConfig(cmd.Context(), cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	if s == nil {
		return nil, nil, errors.New("STORAGE_BACKEND is not configured")
	}
	return services.NewArchiver(s), func() {
		if err := s.Close(); err != nil {
			log.Warn("close storage", "error", err)
		}
	}, nil
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveShowCmd, archiveRmCmd)
}
