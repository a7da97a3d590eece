package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"goldcheck/internal/processors"
)

func newProcessorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "processors",
		Short:       "List the processors that can be put under test",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range processors.Names() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
