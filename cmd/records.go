package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/example/locksync/internal/audit"
	"github.com/example/locksync/internal/directory"
	"github.com/spf13/cobra"
)

func newRecordsCmd() *cobra.Command {
	var out string

	c := &cobra.Command{
		Use:   "records",
		Short: "Export recent unlock records for every front door lock",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			dir, err := directory.Load(e.cfg.DirectoryPath)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := audit.WriteUnlockRecords(ctx, dir, e.vendor, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "wrote %d unlock records to %s\n", n, out)
			return nil
		},
	}

	c.Flags().StringVar(&out, "out", "unlock_records.csv", "output CSV path")
	return c
}
