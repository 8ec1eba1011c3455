package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/platinummonkey/ioevents/pkg/events"
)

func newProvidersCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "providers",
		Description: "List or show event providers",
		Flags:       newFlagSet("providers", env),
	}

	consumerOrg := cmd.Flags.String("consumer-org", "", "Consumer org id to list providers for")
	id := cmd.Flags.String("id", "", "Show a single provider")
	metadata := cmd.Flags.Bool("metadata", false, "Include event metadata")
	metadataID := cmd.Flags.String("provider-metadata-id", "", "Filter by provider metadata id")
	metadataIDs := cmd.Flags.String("metadata-ids", "", "Comma separated provider metadata ids to filter by")
	instanceID := cmd.Flags.String("instance-id", "", "Filter by instance id")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *id == "" && *consumerOrg == "" {
			return fmt.Errorf("-consumer-org or -id is required")
		}
		if *metadataID != "" && *metadataIDs != "" {
			return fmt.Errorf("-provider-metadata-id and -metadata-ids cannot be combined")
		}

		_, components, _, err := env.connect(ctx)
		if err != nil {
			return err
		}
		defer components.Close()

		if *id != "" {
			provider, err := components.Client.GetProvider(ctx, *id, *metadata)
			if err != nil {
				return err
			}
			return writeJSON(env.Out, provider)
		}

		opts := events.ProviderOptions{ProviderMetadataID: *metadataID, InstanceID: *instanceID}
		if *metadataIDs != "" {
			opts.ProviderMetadataIDs = strings.Split(*metadataIDs, ",")
		}
		providers, err := components.Client.GetAllProviders(ctx, *consumerOrg, *metadata, opts)
		if err != nil {
			return err
		}
		return writeJSON(env.Out, providers)
	}

	return cmd
}

func newRegistrationsCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "registrations",
		Description: "List event registrations of an org or workspace",
		Flags:       newFlagSet("registrations", env),
	}

	consumerOrg := cmd.Flags.String("consumer-org", "", "Consumer org id")
	project := cmd.Flags.String("project", "", "Project id; with -workspace lists that workspace")
	workspace := cmd.Flags.String("workspace", "", "Workspace id")
	page := cmd.Flags.Int("page", 0, "Page number for org listings")
	size := cmd.Flags.Int("size", 0, "Page size for org listings")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *consumerOrg == "" {
			return fmt.Errorf("-consumer-org is required")
		}
		if (*project == "") != (*workspace == "") {
			return fmt.Errorf("-project and -workspace must be given together")
		}

		_, components, _, err := env.connect(ctx)
		if err != nil {
			return err
		}
		defer components.Close()

		var list *events.RegistrationList
		if *project != "" {
			list, err = components.Client.GetAllRegistrationsForWorkspace(ctx, *consumerOrg, *project, *workspace)
		} else {
			list, err = components.Client.GetAllRegistrationsForOrg(ctx, *consumerOrg, events.Page{Page: *page, Size: *size})
		}
		if err != nil {
			return err
		}
		return writeJSON(env.Out, list)
	}

	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
