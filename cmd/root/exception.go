package root

import (
	"fmt"

	"github.com/spf13/cobra"
)

type exceptionFlags struct {
	stackTrace string
	fatal      bool
	segments   []string
}

func newExceptionCmd(root *rootFlags) *cobra.Command {
	var flags exceptionFlags

	cmd := &cobra.Command{
		Use:   "exception <message>",
		Short: "Record an exception report",
		Example: `  countly exception "connection reset" --stack "$(cat trace.txt)"
  countly exception "out of memory" --fatal`,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.run(cmd, root, args[0])
		},
	}

	cmd.Flags().StringVar(&flags.stackTrace, "stack", "", "Stack trace")
	cmd.Flags().BoolVar(&flags.fatal, "fatal", false, "Report as an unhandled (fatal) exception")
	cmd.Flags().StringArrayVar(&flags.segments, "segment", nil, "Custom segment as key=value (repeatable)")

	return cmd
}

func (f *exceptionFlags) run(cmd *cobra.Command, root *rootFlags, message string) error {
	ctx := cmd.Context()

	segments, err := parseSegments(f.segments)
	if err != nil {
		return err
	}

	s, err := root.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if f.fatal {
		err = s.client.RecordUnhandledException(ctx, message, f.stackTrace, segments)
	} else {
		err = s.client.RecordException(message, f.stackTrace, segments)
		if err == nil {
			err = s.client.Flush(ctx)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Recorded exception")
	printQueueLengths(s, cmd.OutOrStdout())
	return nil
}
