package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// ClustersOptions holds options for the clusters command.
type ClustersOptions struct {
	Format string
}

// NewClustersCommand creates the clusters command.
func NewClustersCommand() *cobra.Command {
	opts := &ClustersOptions{}

	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Manage remote compute clusters",
		Long:  `List the compute clusters of the execution backend and start or stop them.`,
		Example: `  # List clusters
  datadeck clusters list

  # Start a cluster
  datadeck clusters start 0701-cluster-1

  # Stop a cluster
  datadeck clusters stop 0701-cluster-1`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List clusters and their states",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClustersList(cmd, opts)
		},
	}
	listCmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json")

	startCmd := &cobra.Command{
		Use:   "start <cluster-id>",
		Short: "Start a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := backend.NewClusterClient(backendClientConfig(getConfig()))
			if err := client.Start(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to start cluster %s: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cluster %s starting (state: %s)\n", args[0], backend.ClusterPending)
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop <cluster-id>",
		Short: "Stop a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := backend.NewClusterClient(backendClientConfig(getConfig()))
			if err := client.Stop(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to stop cluster %s: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cluster %s stopping (state: %s)\n", args[0], backend.ClusterTerminating)
			return nil
		},
	}

	cmd.AddCommand(listCmd, startCmd, stopCmd)
	return cmd
}

func runClustersList(cmd *cobra.Command, opts *ClustersOptions) error {
	client := backend.NewClusterClient(backendClientConfig(getConfig()))

	clusters, err := client.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list clusters: %w", err)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(clusters)
	}

	renderClusterTable(cmd.OutOrStdout(), clusters)
	return nil
}

func renderClusterTable(w io.Writer, clusters []backend.Cluster) {
	if len(clusters) == 0 {
		_, _ = fmt.Fprintln(w, "No clusters found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "State", "Workers"})

	for _, c := range clusters {
		t.AppendRow(table.Row{c.ClusterID, c.ClusterName, c.State, c.NumWorkers})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d clusters)\n", len(clusters))
}
