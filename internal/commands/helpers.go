// Package commands implements the CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/unbekanntes-pferd/dcadmin/internal/appctx"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
	"github.com/unbekanntes-pferd/dcadmin/internal/resources"
	"github.com/unbekanntes-pferd/dcadmin/internal/tui"
)

// appFrom returns the app stored on the command's context.
func appFrom(cmd *cobra.Command) (*appctx.App, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}

// listFlags are the paging and filtering flags shared by list commands.
type listFlags struct {
	offset uint64
	limit  uint64
	filter string
	sort   string
}

func (f *listFlags) register(cmd *cobra.Command, withSort bool) {
	cmd.Flags().Uint64Var(&f.offset, "offset", 0, "Skip this many items")
	cmd.Flags().Uint64Var(&f.limit, "limit", 0, "Return at most this many items (server default when 0)")
	cmd.Flags().StringVar(&f.filter, "filter", "", "Filter expression, field:op:value joined by | (ops: eq neq le ge cn)")
	if withSort {
		cmd.Flags().StringVar(&f.sort, "sort", "", "Sort expression, e.g. lastName:asc")
	}
}

func (f *listFlags) params() resources.ListParams {
	return resources.ListParams{Offset: f.offset, Limit: f.limit, Filter: f.filter, Sort: f.sort}
}

// rangeMeta exposes a page range in the response metadata.
func rangeMeta(r resources.Range) output.ResponseOption {
	return output.WithMeta("range", r)
}

// pageSummary describes a page like "3 of 120 users".
func pageSummary(n int, total uint64, noun string) string {
	return fmt.Sprintf("%d of %d %s", n, total, noun)
}

// exportTarget opens path for writing, or stdout when path is "-". The
// returned commit func must be called once writing succeeded; close always
// releases the file, and removes it unless committed.
func exportTarget(cmd *cobra.Command, path string) (w io.Writer, commit func() error, closeFn func(), err error) {
	if path == "" {
		return nil, nil, nil, output.ErrUsage("--output is required (use - for stdout)")
	}
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, func() {}, nil
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, nil, nil, output.ErrUsageHint(fmt.Sprintf("cannot write %s: %v", path, err), "Check that the directory exists")
	}
	committed := false
	commit = func() error {
		if err := tmp.Close(); err != nil {
			return err
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			return err
		}
		committed = true
		return nil
	}
	closeFn = func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}
	return tmp, commit, closeFn, nil
}

// runExport writes one export to path and reports the row count. Interactive
// file exports show a spinner; Ctrl-C cancels the export.
func runExport(cmd *cobra.Command, path, noun string, write func(ctx context.Context, w io.Writer) (int, error)) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	w, commit, closeFn, err := exportTarget(cmd, path)
	if err != nil {
		return err
	}
	defer closeFn()

	run := func(ctx context.Context) (int, error) { return write(ctx, w) }
	var n int
	if path != "-" && app.IsInteractive() {
		n, err = tui.Progress(cmd.Context(), cmd.ErrOrStderr(), "Exporting "+noun, run)
		if errors.Is(err, tui.ErrCanceled) {
			return output.ErrUsage("export canceled")
		}
	} else {
		n, err = run(cmd.Context())
	}
	if err != nil {
		return err
	}
	if err := commit(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if path == "-" {
		return nil
	}
	return app.OK(map[string]any{"file": path, "rows": n},
		output.WithSummary(fmt.Sprintf("Exported %d %s to %s", n, noun, path)))
}
