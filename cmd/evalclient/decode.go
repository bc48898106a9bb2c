package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/datar-psa/evalclient/api"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [file]",
		Short: "Validate an evaluation response and print it normalized",
		Long: "Reads an evaluation response from file, or stdin when no file is given, checks it\n" +
			"against the response format and prints the decoded result as indented JSON.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			ev, err := api.DecodeEvaluation(data)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), ev)
		},
	}
}
