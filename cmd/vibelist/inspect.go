package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/heavenlydemon269/vibelist/blobstore"
	"github.com/heavenlydemon269/vibelist/snapshot"
)

func newInspectCommand(flags *rootFlags) *cobra.Command {
	var load bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Describe the snapshot at snapshot.uri",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.openStore(ctx, a.cfg.Snapshot.URI)
			if err != nil {
				return err
			}

			m, err := snapshot.ReadManifest(ctx, store)
			if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
				return err
			}
			out := cmd.OutOrStdout()
			if m != nil {
				if err := writeManifest(out, a.cfg.Snapshot.URI, m); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "%s has no manifest\n", a.cfg.Snapshot.URI)
			}
			if !load && m != nil {
				return nil
			}

			// Loading checks row alignment and checksums.
			start := time.Now()
			snap, err := snapshot.Load(ctx, store, snapshot.LoadOptions{
				CatalogName: a.cfg.Snapshot.CatalogName,
				IndexName:   a.cfg.Snapshot.IndexName,
				Table:       a.cfg.Snapshot.Table,
				TempDir:     a.cfg.Snapshot.TempDir,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "loaded %d rows of dimension %d (%s) in %s\n",
				snap.Catalog.Len(), snap.Index.Dimension(), snap.Index.Metric(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&load, "load", false, "also load the snapshot and verify it")
	return cmd
}

func writeManifest(w io.Writer, uri string, m *snapshot.Manifest) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "snapshot\t%s\n", uri)
	fmt.Fprintf(tw, "created\t%s\n", m.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "catalog\t%s (%d rows)\n", m.Catalog.Path, m.Catalog.Rows)
	fmt.Fprintf(tw, "index\t%s (%d rows)\n", m.Index.Path, m.Index.Rows)
	fmt.Fprintf(tw, "metric\t%s\n", m.Metric)
	fmt.Fprintf(tw, "dimension\t%d\n", m.Dimension)
	if m.Model != "" {
		fmt.Fprintf(tw, "model\t%s\n", m.Model)
	}
	fmt.Fprintf(tw, "text format\t%d\n", m.TextFormat)
	return tw.Flush()
}
