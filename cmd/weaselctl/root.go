package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"weasel/internal/config"
	"weasel/internal/ipc"
)

// rootOptions holds the global flags.
type rootOptions struct {
	ConfigPath string
	SocketPath string
	Timeout    time.Duration
	Format     string

	settings *config.Settings
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "weaselctl",
		Short: "Control utility for weaseld",
		Long: `weaselctl sends requests to a running weaseld, deploys configuration
changes and inspects the session journal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			s, err := config.LoadSettings(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			if opts.SocketPath != "" {
				s.SocketPath = opts.SocketPath
			}
			opts.settings = s
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to weaseld.toml")
	cmd.PersistentFlags().StringVar(&opts.SocketPath, "socket", "", "IPC socket path (overrides config)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "request timeout")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newPingCommand(opts))
	cmd.AddCommand(newTypeCommand(opts))
	cmd.AddCommand(newMaintenanceCommand(opts))
	cmd.AddCommand(newDeployCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newSessionsCommand(opts))
	cmd.AddCommand(newShutdownCommand(opts))

	return cmd
}

func (o *rootOptions) dial() (*ipc.Client, error) {
	c, err := ipc.Dial(o.settings.SocketPath, o.Timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to weaseld at %s: %w", o.settings.SocketPath, err)
	}
	return c, nil
}
