package main

import (
	"fmt"

	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/deepnoodle-ai/shortprog/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lookup",
		Short:   "Look up a stored witness",
		Example: `  shortprog lookup --start 5 --end 10 --store sqlite:witnesses.db`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := viper.GetString("store")
			if dsn == "" {
				return errz.New(errz.ErrUsage, "a store is required (--store or SHORTPROG_STORE)")
			}
			ctx := cmd.Context()
			st, err := store.Open(ctx, dsn)
			if err != nil {
				return err
			}
			defer st.Close()
			start, end := viper.GetFloat64("start"), viper.GetFloat64("end")
			program, ok, err := st.Lookup(ctx, start, end)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no witness for %v -> %v", start, end)
			}
			fmt.Fprintln(cmd.OutOrStdout(), program)
			return nil
		},
	}
	cmd.Flags().Float64("start", 0, "start value")
	cmd.Flags().Float64("end", 0, "end value")
	cmd.Flags().String("store", "", "store to query (sqlite:<path> or postgres://...)")
	return cmd
}
