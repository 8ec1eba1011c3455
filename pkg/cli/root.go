package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ioevents/pkg/bootstrap"
	"github.com/platinummonkey/ioevents/pkg/config"
	"github.com/platinummonkey/ioevents/pkg/observability"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet

	usageOut io.Writer
}

// Env carries the streams and factories shared by subcommands
type Env struct {
	Out    io.Writer
	Err    io.Writer
	In     io.Reader
	Logger *logrus.Logger
	// LoadConfig defaults to config.LoadConfig
	LoadConfig func() (*config.Config, error)
	// Build defaults to bootstrap.Build
	Build func(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*bootstrap.Components, error)
}

func (e *Env) withDefaults() *Env {
	out := *e
	if out.Out == nil {
		out.Out = os.Stdout
	}
	if out.Err == nil {
		out.Err = os.Stderr
	}
	if out.In == nil {
		out.In = os.Stdin
	}
	if out.LoadConfig == nil {
		out.LoadConfig = config.LoadConfig
	}
	if out.Build == nil {
		out.Build = func(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*bootstrap.Components, error) {
			return bootstrap.Build(ctx, cfg, logger, nil)
		}
	}
	return &out
}

// setup loads configuration and, when no logger was injected, builds one from it
func (e *Env) setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := e.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := e.Logger
	if logger == nil {
		logger = observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, e.Err)
	}
	return cfg, logger, nil
}

// connect loads configuration and builds the client components
func (e *Env) connect(ctx context.Context) (*config.Config, *bootstrap.Components, *logrus.Logger, error) {
	cfg, logger, err := e.setup()
	if err != nil {
		return nil, nil, nil, err
	}
	components, err := e.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, components, logger, nil
}

// NewRootCommand creates the root command writing to stdout
func NewRootCommand() *Command {
	return NewRootCommandWithEnv(&Env{})
}

// NewRootCommandWithEnv creates the root command with injected streams and factories
func NewRootCommandWithEnv(env *Env) *Command {
	env = env.withDefaults()
	root := &Command{
		Name:        "ioevents",
		Description: "ioevents - events journal, webhook and publishing CLI",
		Subcommands: make(map[string]*Command),
		Flags:       newFlagSet("ioevents", env),
	}

	root.Subcommands["journal"] = newJournalCommand(env)
	root.Subcommands["verify"] = newVerifyCommand(env)
	root.Subcommands["publish"] = newPublishCommand(env)
	root.Subcommands["providers"] = newProvidersCommand(env)
	root.Subcommands["registrations"] = newRegistrationsCommand(env)

	root.usageOut = env.Out
	return root
}

func newFlagSet(name string, env *Env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.Err)
	return fs
}

// Execute runs the command with os.Args
func (c *Command) Execute() error {
	return c.ExecuteArgs(context.Background(), os.Args[1:])
}

// ExecuteArgs runs the subcommand named by args[0]
func (c *Command) ExecuteArgs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	switch strings.ToLower(args[0]) {
	case "-h", "--help", "help":
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(ctx, args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	out := c.usageOut
	if out == nil {
		out = os.Stdout
	}

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(out, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
