package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	adapters "github.com/zapstore/releastr/internal/domain-adapters/gateways"
)

var addressCmd = &cobra.Command{
	Use:   "address <file>...",
	Short: "Move files to their content-addressed names in the storage directory",
	Long: `Rename each file to <sha256><ext> inside the storage directory and print its
digest, stored path and public URL. Files are moved, not copied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAddress,
}

func init() {
	rootCmd.AddCommand(addressCmd)
}

func runAddress(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	addresser := adapters.NewContentAddresser(s.StorageDir)
	failed := 0
	for _, path := range args {
		a, err := addresser.Address(context.Background(), path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "❌ %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", a.Digest, a.StoragePath, s.CDNURL(a.StoredName()))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be addressed", failed, len(args))
	}
	return nil
}
