/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cicap/personnel/config"
	"github.com/cicap/personnel/internal/logging"
	"github.com/cicap/personnel/internal/mq"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect published change events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log change events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logging.New(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := mq.FromConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect events backend failed: %w", err)
		}
		if events == nil {
			return errors.New("EVENTS_BACKEND is none, nothing to tail")
		}
		defer events.Close()

		log.Info("tailing events", "backend", cfg.Events.Backend, "channel", cfg.Events.Channel)
		err = events.Subscribe(ctx, cfg.Events.Channel, func(ctx context.Context, msg mq.Message) error {
			ev, err := mq.DecodeEvent(msg)
			if err != nil {
				log.Warn("dropping undecodable event", "id", msg.ID, "error", err)
				return nil
			}
			log.Info("event",
				"id", msg.ID,
				"type", ev.Type,
				"actor", ev.Actor,
				"record_id", ev.RecordID,
				"name", ev.Name,
				"affected", ev.Affected,
				"occurred_at", ev.OccurredAt,
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
