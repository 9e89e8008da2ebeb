package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "evalengine",
		Short: "Evaluation engine sidecar",
		Long: `evalengine polls a coordination document for tasks addressed to its
engine identity, evaluates them and publishes a status record that a
controller reads back. Running without a subcommand is the same as "serve".`,
		SilenceUsage: true,
		RunE:         runServeCmd,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newEvalCmd())
	return root
}
