package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"weasel/internal/config"
	"weasel/internal/deployer"
	"weasel/internal/ime"
	"weasel/internal/store"
	"weasel/internal/wire"
)

func newPingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that weaseld is answering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			start := time.Now()
			if _, err := c.Echo(0); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "weaseld is running (%s, %s)\n",
				opts.settings.SocketPath, time.Since(start).Round(time.Microsecond))
			return nil
		},
	}
}

func newTypeCommand(opts *rootOptions) *cobra.Command {
	var app string
	cmd := &cobra.Command{
		Use:   "type <key>...",
		Short: "Open a session and send keys to it",
		Long: `Open a session, send each key and print the responses.

Keys are single characters or keysym names (space, Return, Escape, BackSpace,
Up, Down, Page_Up, Page_Down, Shift_L, ...), optionally prefixed with
modifiers: Control+a, Shift+Tab, Release+Shift_L.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var events []ime.KeyEvent
			for _, arg := range args {
				evs, err := expandKey(arg)
				if err != nil {
					return err
				}
				events = append(events, evs...)
			}

			c, err := opts.dial()
			if err != nil {
				return err
			}
			defer c.Close()

			id, reply, err := c.StartSession(app)
			if err != nil {
				return err
			}
			if id == 0 {
				return errors.New("weaseld is in maintenance")
			}
			defer c.EndSession(id)

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				enc := json.NewEncoder(out)
				enc.Encode(typeResult{Session: id, Reply: reply})
				for _, ev := range events {
					handled, reply, err := c.ProcessKeyEvent(id, ev)
					if err != nil {
						return err
					}
					enc.Encode(typeResult{Session: id, Key: keyLabel(ev), Handled: handled, Reply: reply})
				}
				return nil
			}

			fmt.Fprintf(out, "session %d\n", id)
			for _, ev := range events {
				handled, reply, err := c.ProcessKeyEvent(id, ev)
				if err != nil {
					return err
				}
				printReply(out, keyLabel(ev), handled, reply)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&app, "app", "weaselctl", "client application identifier")
	return cmd
}

type typeResult struct {
	Session ime.SessionID `json:"session"`
	Key     string        `json:"key,omitempty"`
	Handled bool          `json:"handled"`
	Reply   *wire.Reply   `json:"reply,omitempty"`
}

func keyLabel(ev ime.KeyEvent) string {
	return fmt.Sprintf("%#04x/%#04x", ev.KeyCode, ev.Mask)
}

func printReply(w io.Writer, key string, handled bool, r *wire.Reply) {
	fmt.Fprintf(w, "%s handled=%t", key, handled)
	if r == nil {
		fmt.Fprintln(w)
		return
	}
	if r.Committed {
		fmt.Fprintf(w, " commit=%q", r.Commit)
	}
	if r.Composing {
		fmt.Fprintf(w, " preedit=%q", r.Preedit)
	}
	if r.HasStatus && r.Status.ASCIIMode {
		fmt.Fprint(w, " ascii")
	}
	fmt.Fprintln(w)
}

func newMaintenanceCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Suspend or resume the engine",
	}
	run := func(start bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			c, err := opts.dial()
			if err != nil {
				return err
			}
			defer c.Close()
			if start {
				return c.StartMaintenance()
			}
			return c.EndMaintenance()
		}
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Enter maintenance and finalize the engine",
		Args:  cobra.NoArgs,
		RunE:  run(true),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "end",
		Short: "Leave maintenance unless a deployer is running",
		Args:  cobra.NoArgs,
		RunE:  run(false),
	})
	return cmd
}

func newDeployCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Validate the configuration and restart the engine",
		Long: `Deploy holds the deployer lock while it validates the effective weasel
configuration, so weaseld stays in maintenance until it is done. weaseld is
resumed afterwards even when validation fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s := opts.settings

			c, err := opts.dial()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			} else {
				defer c.Close()
				if err := c.StartMaintenance(); err != nil {
					return err
				}
			}

			lock, err := deployer.Acquire(s.UserDataDir)
			if err != nil {
				return err
			}
			verr := validateEffective(s)
			if err := lock.Release(); err != nil {
				return err
			}

			if c != nil {
				if err := c.EndMaintenance(); err != nil {
					return err
				}
			}
			if verr != nil {
				return verr
			}
			fmt.Fprintln(out, "deployed")
			return nil
		},
	}
}

func validateEffective(s *config.Settings) error {
	st, err := config.OpenStore("weasel", s.UserDataDir, s.SharedDataDir)
	if errors.Is(err, config.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return config.ValidateStore(st)
}

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a weasel.yaml against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}

func newSessionsCommand(opts *rootOptions) *cobra.Command {
	var limit int
	var maintenance bool
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent sessions from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := store.Open(opts.settings.Journal.Path, nil)
			if err != nil {
				return err
			}
			defer j.Close()

			out := cmd.OutOrStdout()
			if maintenance {
				recs, err := j.Maintenance(limit)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return json.NewEncoder(out).Encode(recs)
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "AT\tSTATE")
				for _, r := range recs {
					state := "running"
					if r.Disabled {
						state = "maintenance"
					}
					fmt.Fprintf(tw, "%s\t%s\n", r.At.Format(time.RFC3339), state)
				}
				return tw.Flush()
			}

			recs, err := j.Recent(limit)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return json.NewEncoder(out).Encode(recs)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tAPP\tSTARTED\tDURATION\tKEYS\tHANDLED\tCOMMITS")
			for _, r := range recs {
				dur := "open"
				if r.Ended != nil {
					dur = r.Ended.Sub(r.Started).Round(time.Second).String()
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
					r.SessionID, r.App, r.Started.Format(time.RFC3339), dur, r.Keys, r.Handled, r.Commits)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records")
	cmd.Flags().BoolVar(&maintenance, "maintenance", false, "list maintenance transitions instead")
	return cmd
}

func newShutdownCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Ask weaseld to exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.dial()
			if err != nil {
				return err
			}
			defer c.Close()
			return c.ShutdownServer()
		},
	}
}
