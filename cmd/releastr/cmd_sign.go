package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zapstore/releastr/internal/domain/interfaces"
	"github.com/zapstore/releastr/internal/domain/services"
	"github.com/zapstore/releastr/internal/external-adapters/nostr"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign unsigned records written by publish and send them to the relay",
	Long: `Finalize record sets written by "publish" without a signing key: pending
file-metadata references and author keys are resolved, every record is signed
with the configured secret, then the sets are published.`,
	Example: `  RELEASTR_SECRET_KEY=nsec1... releastr sign --in records.json
  releastr sign --in records.json --dry-run --out signed.json`,
	RunE: runSign,
}

var (
	signIn     string
	signOut    string
	signDryRun bool
)

func init() {
	signCmd.Flags().StringVarP(&signIn, "in", "i", "", "Record sets to sign (required)")
	signCmd.Flags().StringVarP(&signOut, "out", "o", "", "Write the signed record sets to this file")
	signCmd.Flags().BoolVar(&signDryRun, "dry-run", false, "Sign but do not publish")

	if err := signCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(signCmd)
}

func runSign(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(s, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	signer, err := loadSigner(s)
	if err != nil {
		return err
	}
	if signer == nil {
		return errors.New("no signing key configured (set RELEASTR_SECRET_KEY or RELEASTR_SECRET_KEY_FILE)")
	}

	bundles, err := readBundles(signIn)
	if err != nil {
		return err
	}

	ctx := context.Background()
	builder := services.NewRecordBuilder(interfaces.RealClock{})
	out := cmd.OutOrStdout()
	author, err := nostr.EncodePublicKey(signer.PublicKey())
	if err != nil {
		return fmt.Errorf("failed to encode signer key: %w", err)
	}

	// A set that cannot be finalized is reported and left out; the rest still go through
	var signed []RecordBundle
	for _, b := range bundles {
		if err := builder.Finalize(ctx, b.Records, signer); err != nil {
			fmt.Fprintf(out, "  ❌ %s: %v\n", b.Alias, err)
			continue
		}
		signed = append(signed, b)
	}
	failed := len(bundles) - len(signed)
	fmt.Fprintf(out, "✍️  Signed %d of %d record sets as %s\n", len(signed), len(bundles), author)

	if signOut != "" && len(signed) > 0 {
		if err := writeBundles(signOut, signed); err != nil {
			return err
		}
	}
	if signDryRun {
		return signFailures(failed, 0)
	}

	relay := nostr.NewRelayClient(s.RelayURL, logger)
	defer func() { _ = relay.Close() }()

	rejected := 0
	for _, b := range signed {
		for _, o := range services.PublishRecords(ctx, relay, b.Records) {
			if o.Accepted {
				fmt.Fprintf(out, "  ✅ %s %s %s\n", b.Alias, o.Kind, o.RecordID)
				continue
			}
			rejected++
			fmt.Fprintf(out, "  ❌ %s %s %s: %s\n", b.Alias, o.Kind, o.RecordID, o.Reason)
		}
	}
	return signFailures(failed, rejected)
}

func signFailures(failed, rejected int) error {
	switch {
	case failed > 0 && rejected > 0:
		return fmt.Errorf("%d record sets could not be signed and %d records were rejected", failed, rejected)
	case failed > 0:
		return fmt.Errorf("%d record sets could not be signed", failed)
	case rejected > 0:
		return fmt.Errorf("%d records were rejected", rejected)
	}
	return nil
}
