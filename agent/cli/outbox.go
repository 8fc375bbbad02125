package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newOutboxCmd() *cobra.Command {
	var (
		tenantID string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Print queued handoff messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return usagef("--limit must not be negative")
			}
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			pending, err := st.PendingHandoffs(cmd.Context(), tenantID, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pending)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Only messages of this tenant")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of messages (0 for all)")
	return cmd
}
