package main

import (
	"github.com/deepnoodle-ai/shortprog/dis"
	"github.com/spf13/cobra"
)

func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the instruction alphabet",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			dis.Alphabet(cmd.OutOrStdout())
		},
	}
}
