// Package cli implements the cosmifi command line client.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cosmifi/gateway/adapters/wallet"
	"github.com/cosmifi/gateway/client"
	"github.com/cosmifi/gateway/internal/logger"
	"github.com/cosmifi/gateway/ports"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultAPIURL      = "http://localhost:9000"
	defaultPasswordEnv = "COSMIFI_KEYSTORE_PASSWORD"
)

type app struct {
	apiURL       string
	apiKey       string
	keyHex       string
	keystorePath string
	passwordEnv  string
	yes          bool
	timeout      time.Duration
	verbose      bool

	log *zap.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewRootCommandWithIO(in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newRootCommand(in, out, errOut)
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{
		log:    zap.NewNop(),
		stdin:  in,
		stdout: out,
		stderr: errOut,
	}

	cmd := &cobra.Command{
		Use:           "cosmifi",
		Short:         "Wallet-signature client for the CosmiFi gateway",
		Long:          "cosmifi signs CosmiFi authentication challenges with a local key and calls the gateway with the resulting credentials.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !a.verbose {
				return nil
			}
			l, err := logger.New(logger.Config{Level: "debug", Format: "console"})
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.apiURL, "api-url", envOr("COSMIFI_API_URL", defaultAPIURL), "gateway base URL")
	cmd.PersistentFlags().StringVar(&a.apiKey, "api-key", os.Getenv("COSMIFI_API_KEY"), "platform API key sent as apikey and in the bearer slot")
	cmd.PersistentFlags().StringVar(&a.keyHex, "key", os.Getenv("COSMIFI_PRIVATE_KEY"), "hex secp256k1 private key")
	cmd.PersistentFlags().StringVar(&a.keystorePath, "keystore", "", "path to an encrypted keystore JSON file")
	cmd.PersistentFlags().StringVar(&a.passwordEnv, "password-env", defaultPasswordEnv, "environment variable holding the keystore password")
	cmd.PersistentFlags().BoolVarP(&a.yes, "yes", "y", false, "sign without asking for confirmation")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log signing and cache decisions to stderr")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 2*time.Minute, "overall timeout, including time spent at the signing prompt")

	cmd.AddCommand(
		newAddressCmd(a),
		newHeadersCmd(a),
		newLoginCmd(a),
		newMeCmd(a),
		newLogoutCmd(a),
	)

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// keySigner loads the local key from --key or --keystore
func (a *app) keySigner() (*wallet.KeySigner, error) {
	switch {
	case a.keyHex != "" && a.keystorePath != "":
		return nil, errors.New("use either --key or --keystore, not both")
	case a.keyHex != "":
		return wallet.KeySignerFromHex(a.keyHex)
	case a.keystorePath != "":
		keyJSON, err := os.ReadFile(a.keystorePath)
		if err != nil {
			return nil, fmt.Errorf("reading keystore: %w", err)
		}
		return wallet.KeySignerFromKeystore(keyJSON, os.Getenv(a.passwordEnv))
	default:
		return nil, client.ErrNotConnected
	}
}

// wallet returns the signer and the address it signs for
func (a *app) wallet() (ports.WalletSigner, string, error) {
	key, err := a.keySigner()
	if err != nil {
		return nil, "", err
	}

	var signer ports.WalletSigner = key
	if !a.yes {
		signer = wallet.NewPromptSigner(key, a.stdin, a.stderr)
	}
	return signer, key.Address(), nil
}

func (a *app) credentials() (*client.CredentialBuilder, string, error) {
	signer, address, err := a.wallet()
	if err != nil {
		return nil, "", err
	}
	return client.NewCredentialBuilder(signer, client.NewSignatureCache(nil), a.apiKey, a.log), address, nil
}

func (a *app) api() *client.APIClient {
	return client.NewAPIClient(a.apiURL, a.apiKey, nil)
}
