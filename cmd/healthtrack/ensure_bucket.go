package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"healthtrack/internal/config"
)

func newEnsureBucketCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-bucket",
		Short: "Create the attachment bucket if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Storage.Backend != config.BackendS3 {
				return fmt.Errorf("ensure-bucket needs the %s backend, configured backend is %q", config.BackendS3, a.cfg.Storage.Backend)
			}

			store, err := newMinioStore(a.cfg)
			if err != nil {
				return err
			}

			created, err := store.EnsureBucket(cmd.Context())
			if err != nil {
				return err
			}

			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created bucket %s\n", store.Bucket())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Bucket %s already exists\n", store.Bucket())
			}
			return nil
		},
	}
}
