package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/platinummonkey/ioevents/pkg/signature"
)

// ErrInvalidSignature is returned when a payload fails verification
var ErrInvalidSignature = errors.New(signature.MsgBadSignature)

func newVerifyCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "verify",
		Description: "Verify the digital signatures of a webhook payload",
		Flags:       newFlagSet("verify", env),
	}

	file := cmd.Flags.String("file", "-", "Payload file, - for stdin")
	clientID := cmd.Flags.String("client-id", "", "Recipient client id (default IOEVENTS_CLIENT_ID)")
	sig1 := cmd.Flags.String("sig1", "", "Value of "+signature.HeaderSignature1)
	sig2 := cmd.Flags.String("sig2", "", "Value of "+signature.HeaderSignature2)
	key1 := cmd.Flags.String("key1", "", "Value of "+signature.HeaderKeyPath1)
	key2 := cmd.Flags.String("key2", "", "Value of "+signature.HeaderKeyPath2)

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		body, err := readInput(env, *file)
		if err != nil {
			return err
		}

		cfg, components, _, err := env.connect(ctx)
		if err != nil {
			return err
		}
		defer components.Close()

		recipient := firstNonEmpty(*clientID, cfg.Credentials.ClientID)
		if recipient == "" {
			return fmt.Errorf("recipient client id is required")
		}

		valid, err := components.Client.VerifyDigitalSignatureForEvent(ctx, string(body), recipient, signature.SignatureOptions{
			DigiSignature1: *sig1,
			DigiSignature2: *sig2,
			PublicKeyPath1: *key1,
			PublicKeyPath2: *key2,
		})
		if err != nil {
			return err
		}
		if !valid {
			return ErrInvalidSignature
		}

		fmt.Fprintln(env.Out, "signature valid")
		return nil
	}

	return cmd
}

// readInput reads path, or the env input stream for "-"
func readInput(env *Env, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(env.In)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
