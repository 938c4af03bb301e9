package root

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type eventFlags struct {
	count    int
	sum      float64
	duration float64
	segments []string
}

func newEventCmd(root *rootFlags) *cobra.Command {
	var flags eventFlags

	cmd := &cobra.Command{
		Use:   "event <key>",
		Short: "Record a custom event",
		Long:  "Queue a custom event and persist it. It is uploaded with the next session or flush.",
		Example: `  countly event app_launch
  countly event purchase --count 2 --sum 9.99 --segment tier=gold --segment country=DE`,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.run(cmd, root, args[0])
		},
	}

	cmd.Flags().IntVar(&flags.count, "count", 1, "Number of occurrences")
	cmd.Flags().Float64Var(&flags.sum, "sum", 0, "Sum attached to the event")
	cmd.Flags().Float64Var(&flags.duration, "dur", 0, "Duration attached to the event, in seconds")
	cmd.Flags().StringArrayVar(&flags.segments, "segment", nil, "Segmentation as key=value (repeatable)")

	return cmd
}

func (f *eventFlags) run(cmd *cobra.Command, root *rootFlags, key string) error {
	ctx := cmd.Context()

	segmentation, err := parseSegments(f.segments)
	if err != nil {
		return err
	}

	var sum, duration *float64
	if cmd.Flags().Changed("sum") {
		sum = &f.sum
	}
	if cmd.Flags().Changed("dur") {
		duration = &f.duration
	}

	s, err := root.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.client.RecordEvent(key, f.count, sum, duration, segmentation); err != nil {
		return err
	}
	if err := s.client.Flush(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recorded event %q\n", key)
	printQueueLengths(s, cmd.OutOrStdout())
	return nil
}

// parseSegments turns key=value pairs into a map. Later keys win.
func parseSegments(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid segment %q, expected key=value", pair)
		}
		out[k] = v
	}
	return out, nil
}
