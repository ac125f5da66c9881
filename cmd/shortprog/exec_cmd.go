package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/deepnoodle-ai/shortprog/dis"
	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/deepnoodle-ai/shortprog/op"
	"github.com/deepnoodle-ai/shortprog/vm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func parseProgram(s string) ([]op.Code, error) {
	program, err := op.Parse(s)
	if err != nil {
		return nil, errz.Wrap(errz.ErrUsage, err, "invalid program")
	}
	return program, nil
}

// jsonNumber returns v unchanged when JSON can represent it and as its
// strconv form ("NaN", "+Inf", "-Inf") otherwise.
func jsonNumber(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec PROGRAM",
		Short: "Run a single program and print its transformation",
		Example: `  shortprog exec QG --start 5
  shortprog exec AQPI --start 2 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := parseProgram(args[0])
			if err != nil {
				return err
			}
			tr, ok, err := vm.Execute(program, viper.GetFloat64("start"))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if viper.GetBool("json") {
				result := map[string]any{"program": args[0], "ok": ok, "start": jsonNumber(tr.Start)}
				if ok {
					result["end"] = jsonNumber(tr.End)
				}
				data, err := json.Marshal(result)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(prettyJSON(data, out)))
				return nil
			}
			if !ok {
				fmt.Fprintln(out, "no result")
				return nil
			}
			fmt.Fprintf(out, "%v -> %v\n", tr.Start, tr.End)
			return nil
		},
	}
	cmd.Flags().Float64("start", 0, "start value placed on the stack")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	return cmd
}

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trace PROGRAM",
		Short:   "Print the machine state after every instruction of a program",
		Example: `  shortprog trace AQPI --start 2`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := parseProgram(args[0])
			if err != nil {
				return err
			}
			steps, tr, ok, err := dis.Trace(program, viper.GetFloat64("start"))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			dis.Print(steps, out)
			if !ok {
				fmt.Fprintln(out, red("no result"))
				return nil
			}
			fmt.Fprintf(out, "%v -> %v\n", tr.Start, tr.End)
			return nil
		},
	}
	cmd.Flags().Float64("start", 0, "start value placed on the stack")
	return cmd
}
