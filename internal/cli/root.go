// Package cli implements kgctl, an offline tool for inspecting and editing
// narrative graph save files.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kgctl",
		Short: "Inspect and edit narrative knowledge graph save files",
		Long: `kgctl loads a graph snapshot (or the canonical cast when --graph is
not given), runs one engine operation against it and prints the result.

Configuration is read from the environment and an optional .env file,
the same way the server and worker read it.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("graph", "", "Snapshot JSON file to load (default: canonical cast)")
	rootCmd.PersistentFlags().Bool("json", false, "Print machine-readable output")

	// Lookup Commands
	resolveCmd := &cobra.Command{
		Use:   "resolve <text>",
		Short: "Resolve free text to a node id",
		Args:  cobra.ExactArgs(1),
		RunE:  RunResolve,
	}

	queryCmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Retrieve the relevant subgraph and print the augmented prompt",
		Args:  cobra.ExactArgs(1),
		RunE:  RunQuery,
	}
	queryCmd.Flags().String("mode", "local", "Retrieval mode: local|global")
	queryCmd.Flags().Int("hops", 0, "Expansion depth (0: default, -1: seeds only)")

	// Analytics Commands
	pathCmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find the dominance path between two entities",
		Args:  cobra.ExactArgs(2),
		RunE:  RunPath,
	}

	communitiesCmd := &cobra.Command{
		Use:   "communities",
		Short: "Detect communities and list each node's community",
		RunE:  RunCommunities,
	}

	// State Commands
	applyCmd := &cobra.Command{
		Use:   "apply <batch.json>",
		Short: "Apply a mutation batch and write the resulting snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  RunApply,
	}
	applyCmd.Flags().StringP("out", "o", "", "Where to write the snapshot (default: --graph file)")

	exportCmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the loaded graph as a compact snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE:  RunExport,
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a snapshot file and save it to the snapshot store",
		Args:  cobra.ExactArgs(1),
		RunE:  RunImport,
	}
	importCmd.Flags().String("name", "", "Snapshot name in the store (default: file name)")

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a mutation batch",
		RunE:  RunSchema,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kgctl %s\n", version)
		},
	}

	rootCmd.AddCommand(
		resolveCmd,
		queryCmd,
		pathCmd,
		communitiesCmd,
		applyCmd,
		exportCmd,
		importCmd,
		schemaCmd,
		versionCmd,
	)

	return rootCmd
}
