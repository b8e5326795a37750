package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// FilesOptions holds options for the files command.
type FilesOptions struct {
	Format string
}

// NewFilesCommand creates the files command.
func NewFilesCommand() *cobra.Command {
	opts := &FilesOptions{}

	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage uploaded files",
		Long: `Upload files to the indexing backend and inspect their status.

Uploads run strictly one file at a time; a failed file is reported and the
remaining files still upload.`,
		Example: `  # Upload files
  datadeck files upload sales.csv customers.xlsx

  # List uploaded files
  datadeck files list

  # Check indexing progress
  datadeck files status 3f1a...

  # Delete a file and its index entries
  datadeck files delete 3f1a...`,
	}

	uploadCmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilesUpload(cmd, args)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFilesList(cmd, opts)
		},
	}
	listCmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json")

	statusCmd := &cobra.Command{
		Use:   "status <file-id>",
		Short: "Show indexing progress for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := backend.NewFileClient(backendClientConfig(getConfig()))
			result, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch status: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", result.Status)
			if result.ChunksIndexed != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Chunks indexed: %d\n", *result.ChunksIndexed)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file and its index entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := backend.NewFileClient(backendClientConfig(getConfig()))
			if err := client.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete file: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(uploadCmd, listCmd, statusCmd, deleteCmd)
	return cmd
}

// runFilesUpload uploads each named file in order. Failures are reported but
// do not stop the batch; the command exits non-zero if any file failed.
func runFilesUpload(cmd *cobra.Command, paths []string) error {
	client := backend.NewFileClient(backendClientConfig(getConfig()))
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			_, _ = fmt.Fprintf(out, "FAIL  %s: %v\n", path, err)
			failed++
			continue
		}

		result, err := client.Upload(cmd.Context(), filepath.Base(path), f)
		_ = f.Close()
		if err != nil {
			_, _ = fmt.Fprintf(out, "FAIL  %s: %v\n", path, err)
			failed++
			continue
		}
		_, _ = fmt.Fprintf(out, "OK    %s (id: %s, status: %s)\n", path, result.FileID, result.Status)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(paths))
	}
	return nil
}

func runFilesList(cmd *cobra.Command, opts *FilesOptions) error {
	client := backend.NewFileClient(backendClientConfig(getConfig()))

	files, err := client.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(files)
	}

	renderFileTable(cmd.OutOrStdout(), files)
	return nil
}

func renderFileTable(w io.Writer, files []backend.FileInfo) {
	if len(files) == 0 {
		_, _ = fmt.Fprintln(w, "No files uploaded")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Filename", "Type", "Size", "Status"})

	for _, f := range files {
		t.AppendRow(table.Row{f.ID, f.Filename, f.FileType, f.Size, f.Status})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d files)\n", len(files))
}
