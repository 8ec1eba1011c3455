package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/ioevents/pkg/events"
)

func newPublishCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "publish",
		Description: "Publish a CloudEvent to the ingress API",
		Flags:       newFlagSet("publish", env),
	}

	file := cmd.Flags.String("file", "", "CloudEvent JSON file, - for stdin")
	source := cmd.Flags.String("source", "", "Event source, e.g. urn:uuid:<provider id>")
	eventType := cmd.Flags.String("type", "", "Event code")
	data := cmd.Flags.String("data", "", "JSON event data")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		var event interface{}
		if *file != "" {
			body, err := readInput(env, *file)
			if err != nil {
				return err
			}
			if !json.Valid(body) {
				return fmt.Errorf("event file is not valid JSON")
			}
			event = json.RawMessage(body)
		} else {
			if *source == "" || *eventType == "" {
				return fmt.Errorf("-file or both -source and -type are required")
			}
			ce := events.CloudEvent{
				SpecVersion:     "1.0",
				ID:              uuid.NewString(),
				Source:          *source,
				Type:            *eventType,
				DataContentType: "application/json",
			}
			now := time.Now().UTC()
			ce.Time = &now
			if *data != "" {
				if !json.Valid([]byte(*data)) {
					return fmt.Errorf("-data is not valid JSON")
				}
				ce.Data = json.RawMessage(*data)
			}
			event = ce
		}

		_, components, _, err := env.connect(ctx)
		if err != nil {
			return err
		}
		defer components.Close()

		response, err := components.Client.PublishEvent(ctx, event)
		if err != nil {
			return err
		}

		if response == "" {
			fmt.Fprintln(env.Out, "published (no content)")
		} else {
			fmt.Fprintln(env.Out, response)
		}
		return nil
	}

	return cmd
}
