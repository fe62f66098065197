package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cosmifi/gateway/client"
	"github.com/cosmifi/gateway/core"
	"github.com/spf13/cobra"
)

func newAddressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the wallet address of the configured key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.keySigner()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, key.Address())
			return nil
		},
	}
}

func newHeadersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "headers",
		Short: "Sign a fresh challenge and print the wallet credential headers",
		Long: `Sign a fresh challenge and print the headers the gateway expects in wallet mode.

Examples:

  cosmifi headers --key $PRIVATE_KEY --api-key $ANON_KEY
  cosmifi headers --keystore ./key.json --password-env KEY_PASSWORD -y`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			builder, address, err := a.credentials()
			if err != nil {
				return err
			}
			h, err := builder.AuthHeaders(ctx, address)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "%s: %s\n", core.HeaderAuthorization, h.Authorization)
			fmt.Fprintf(a.stdout, "%s: %s\n", core.HeaderWalletAddress, h.WalletAddress)
			fmt.Fprintf(a.stdout, "%s: %s\n", core.HeaderMessage, h.Message)
			fmt.Fprintf(a.stdout, "%s: %s\n", core.HeaderSignature, h.Signature)
			if h.APIKey != "" {
				fmt.Fprintf(a.stdout, "%s: %s\n", core.HeaderAPIKey, h.APIKey)
			}
			return nil
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Exchange a wallet signature for an identity token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			builder, address, err := a.credentials()
			if err != nil {
				return err
			}
			h, err := builder.AuthHeaders(ctx, address)
			if err != nil {
				return err
			}

			session, err := a.api().VerifyWallet(ctx, h.WalletAddress, h.Signature, h.Message)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Fprintln(a.stdout, session.Token)
			fmt.Fprintf(a.stderr, "token for %s expires %s\n", session.WalletAddress, session.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
}

func newMeCmd(a *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the identity the gateway authenticates you as",
		Long: `Show the identity the gateway authenticates you as.

Without --token the request carries fresh wallet credentials; with --token it
uses bearer mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			var creds core.Headers
			if token != "" {
				creds = core.Headers{Authorization: core.BearerPrefix + token}
			} else {
				builder, address, err := a.credentials()
				if err != nil {
					return err
				}
				if creds, err = builder.AuthHeaders(ctx, address); err != nil {
					return err
				}
			}

			id, err := a.api().Me(ctx, creds)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.Status == 401 {
					return fmt.Errorf("not authenticated: %s", apiErr.Message)
				}
				return err
			}

			fmt.Fprintf(a.stdout, "%s\t%s\n", id.WalletAddress, id.Source)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "identity token from login")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout <token>",
		Short: "Revoke an identity token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			if err := a.api().Logout(ctx, args[0]); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}
			fmt.Fprintln(a.stderr, "logged out")
			return nil
		},
	}
}
