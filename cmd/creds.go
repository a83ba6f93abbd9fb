package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Derive and print venue API credentials",
	Long: `Runs each venue's authentication flow from the trading key:

- Predict exchanges an EIP-712 login for a session token
- Probable derives the L2 HMAC triplet (key, secret, passphrase)
- Opinion uses the static API_KEY and has nothing to derive

The Probable triplet is printed so it can be stored for external
tooling. Treat the output as a secret.`,
	Args: cobra.NoArgs,
	RunE: runCreds,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(credsCmd)
}

func runCreds(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	vt, err := buildVenues(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = vt.predict.Authenticate(ctx)
	if err != nil {
		fmt.Printf("predict: authentication failed: %v\n", err)
	} else {
		fmt.Println("predict: session established")
	}

	err = vt.probable.Authenticate(ctx)
	if err != nil {
		fmt.Printf("probable: authentication failed: %v\n", err)
	} else {
		creds := vt.probable.Credentials()
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Venue", "API key", "Secret", "Passphrase")
		table.Append("probable", creds.APIKey, creds.Secret, creds.Passphrase)
		table.Render()
	}

	if cfg.APIKey == "" {
		fmt.Println("opinion: API_KEY not set")
	} else {
		fmt.Println("opinion: uses the static API_KEY; nothing to derive")
	}

	return nil
}
