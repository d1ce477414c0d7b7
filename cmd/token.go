package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/example/locksync/internal/credential"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored vendor credential",
	}
	c.AddCommand(newTokenImportCmd())
	c.AddCommand(newTokenShowCmd())
	return c
}

func newTokenImportCmd() *cobra.Command {
	var (
		accessToken  string
		refreshToken string
		expiresIn    int64
	)

	c := &cobra.Command{
		Use:   "import",
		Short: "Seed the credential store from an out-of-band OAuth grant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			store := e.tokens
			tok := credential.Token{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
			}
			if err := store.Save(ctx, tok); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "token stored, expires %s\n", tok.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	c.Flags().StringVar(&accessToken, "access-token", "", "vendor access token")
	c.Flags().StringVar(&refreshToken, "refresh-token", "", "vendor refresh token")
	c.Flags().Int64Var(&expiresIn, "expires-in", 7200, "access token lifetime in seconds")
	_ = c.MarkFlagRequired("refresh-token")
	return c
}

func newTokenShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cached token status (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			store := e.tokens
			tok, err := store.Load(ctx)
			if err != nil {
				return err
			}
			if tok.AccessToken == "" && tok.RefreshToken == "" {
				fmt.Fprintln(os.Stdout, "no token stored")
				return nil
			}
			fmt.Fprintf(os.Stdout, "access_token=%s refresh_token=%s expires_at=%s valid=%t\n",
				mask(tok.AccessToken), mask(tok.RefreshToken),
				tok.ExpiresAt.UTC().Format(time.RFC3339), tok.Valid(time.Now()))
			return nil
		},
	}
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
