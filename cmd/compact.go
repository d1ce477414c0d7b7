package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Rewrite the reconciliation log keeping only the newest entry per target",
		Long: `Compaction bounds log growth. It keeps the newest entry per
(reference, lock role) pair, which preserves every authoritative fact. Run it
offline: nothing else may be writing the log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			removed, err := e.log.Compact(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "compacted: %d superseded entries removed\n", removed)
			return nil
		},
	}
}
