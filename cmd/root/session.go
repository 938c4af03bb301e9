package root

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type sessionFlags struct {
	duration time.Duration
}

func newSessionCmd(root *rootFlags) *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run a session",
		Long:  "Begin a session, keep it alive with heartbeats for the given duration (or until interrupted), then end it",
		Example: `  countly session --duration 2m
  countly session --debug`,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.run(cmd, root)
		},
	}

	cmd.Flags().DurationVar(&flags.duration, "duration", 0, "How long the session lasts (0 waits for an interrupt)")

	return cmd
}

func (f *sessionFlags) run(cmd *cobra.Command, root *rootFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := root.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.begin(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Session started for device %s\n", s.client.DeviceID(ctx))

	var timeout <-chan time.Time
	if f.duration > 0 {
		timer := time.NewTimer(f.duration)
		defer timer.Stop()
		timeout = timer.C
	}

	start := time.Now()
	select {
	case <-ctx.Done():
	case <-timeout:
	}

	if err := s.client.EndSession(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	fmt.Fprintf(out, "Session ended after %s\n", time.Since(start).Round(time.Second))
	printQueueLengths(s, out)
	return nil
}
