package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newFlushCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "flush",
		Short:   "Upload everything queued",
		Long:    "Run a zero-length session so every persisted record is handed to the server",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := root.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.begin(ctx); err != nil {
				return err
			}
			if err := s.client.EndSession(context.WithoutCancel(ctx)); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.config.Disabled {
				fmt.Fprintln(out, "Uploads are disabled (COUNTLY_ENABLED=false), records were only persisted")
			}
			printQueueLengths(s, out)
			return nil
		},
	}
}
