package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/banshee-data/hondabus/internal/db"
	"github.com/banshee-data/hondabus/internal/vehicle"
)

func newParamsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Read and write the persistent session params",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Print one param",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDB(opts)
			if err != nil {
				return err
			}
			defer store.Close()
			value, err := store.GetParam(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store one param",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if !slices.Contains(db.KnownParams(), key) {
				return fmt.Errorf("unknown param %q (known: %v)", key, db.KnownParams())
			}
			if key == db.ParamCarFingerprint {
				if _, err := vehicle.DefaultCatalog().Lookup(value); err != nil {
					return err
				}
			}
			store, err := openDB(opts)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.PutParam(key, value)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the session params as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDB(opts)
			if err != nil {
				return err
			}
			defer store.Close()
			params, err := store.SessionParams()
			if errors.Is(err, db.ErrParamNotFound) {
				return fmt.Errorf("%w; set it with: hondabus params set %s VEHICLE", err, db.ParamCarFingerprint)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(params)
		},
	})
	return cmd
}
