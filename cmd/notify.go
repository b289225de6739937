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

	"github.com/spf13/cobra"
	"github.com/whisperbox/webapp/config"
	"github.com/whisperbox/webapp/internal/logger"
	"github.com/whisperbox/webapp/internal/mq"
)

// notifyCmd represents the notify command.
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Consume message.received events and log them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := mq.NewBackend(ctx, cfg)
		if err != nil {
			return err
		}
		if backend == nil {
			return errors.New("notify requires MQ_BACKEND to be rabbitmq or pubsub")
		}
		broker := mq.New(backend)
		defer broker.Close()

		log.Info("listening for events", "backend", cfg.MQ.Backend, "channel", cfg.MQ.Channel)

		err = broker.Subscribe(ctx, cfg.MQ.Channel, func(ctx context.Context, msg mq.Message) error {
			event, err := mq.DecodeMessageReceived(msg)
			if err != nil {
				// Ack malformed payloads; redelivery cannot fix them.
				log.Warn("dropping malformed event", "id", msg.ID, "error", err)
				return nil
			}
			log.Info("message received",
				"username", event.Username,
				"message_id", event.MessageID,
				"received_at", event.ReceivedAt,
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
	rootCmd.AddCommand(notifyCmd)
}
