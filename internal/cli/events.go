package cli

import (
	"context"
	"encoding/json"
	"errors"

	"textbook-qa-be/pkg/events"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow book status events",
	Long:  `Prints every book.status event published by ingestion runs until interrupted.`,
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

var eventsDurable string

func init() {
	eventsCmd.Flags().StringVar(&eventsDurable, "durable", "", "durable consumer name (replays missed events)")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	d, err := requireDeps()
	if err != nil {
		return err
	}
	if d.Events == nil {
		return errors.New("event stream not configured (set NATS_URL)")
	}

	ctx := cmd.Context()
	err = d.Events.Subscribe(ctx, events.TypeBookStatus, eventsDurable, func(ctx context.Context, e events.Event) error {
		line, err := json.Marshal(map[string]interface{}{
			"type": e.EventType(),
			"at":   e.Timestamp(),
			"data": e.Payload(),
		})
		if err != nil {
			return err
		}
		cmd.Println(string(line))
		return nil
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
