/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/noteshelf/noteshelf/internal/events"
	"github.com/noteshelf/noteshelf/internal/mq"
	"github.com/spf13/cobra"
)

// eventsCmd groups commands that work with the event feed.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the account and note event feed",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log every event published on the events channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		q, err := mq.FromConfig(ctx, cfg.Events)
		if err != nil {
			return err
		}
		if q == nil {
			return errors.New("EVENTS_BACKEND is not configured")
		}
		defer q.Close()

		log.Info("tailing events", "backend", cfg.Events.Backend, "channel", cfg.Events.Channel)
		err = events.Subscribe(ctx, q, cfg.Events.Channel, log, func(ctx context.Context, ev events.Event) error {
			log.InfoContext(ctx, "event",
				"id", ev.ID,
				"type", ev.Type,
				"username", ev.Username,
				"note_id", ev.NoteID,
				"occurred_at", ev.OccurredAt,
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
