package root

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeviceIDCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "device-id",
		Short:   "Show the device id",
		Long:    "Print the device id sent with every request, resolving and persisting it on first use",
		GroupID: "advanced",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := root.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			fmt.Fprintln(cmd.OutOrStdout(), s.client.DeviceID(ctx))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id>",
		Short: "Override the device id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := root.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.client.SetDeviceID(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Device id set to %s\n", args[0])
			return nil
		},
	})

	return cmd
}
