package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/heavenlydemon269/vibelist"
)

func newRecommendCommand(flags *rootFlags) *cobra.Command {
	var (
		count   int
		exclude []string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "recommend <vibe>...",
		Short: "Print the tracks closest to a vibe",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			enc, err := a.newEncoder()
			if err != nil {
				return err
			}
			vl, err := a.openVibelist(ctx, enc, nil)
			if err != nil {
				return err
			}

			recs, err := vl.Vibe(strings.Join(args, " ")).
				Count(count).
				Exclude(exclude...).
				Execute(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), recs)
			}
			return writeTable(cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", vibelist.DefaultCount, "number of tracks")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "x", nil, "track IDs to leave out")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON lines")
	return cmd
}

func writeTable(w io.Writer, recs []vibelist.Recommendation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tARTIST\tDISTANCE")
	for i, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.4f\n", i+1, r.Track.ID, r.Track.Name, r.Track.Artist, r.Distance)
	}
	return tw.Flush()
}

type recommendationLine struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Artist   string  `json:"artist,omitempty"`
	Album    string  `json:"album,omitempty"`
	Distance float32 `json:"distance"`
}

func writeJSON(w io.Writer, recs []vibelist.Recommendation) error {
	enc := json.NewEncoder(w)
	for _, r := range recs {
		if err := enc.Encode(recommendationLine{
			ID:       r.Track.ID,
			Name:     r.Track.Name,
			Artist:   r.Track.Artist,
			Album:    r.Track.Album,
			Distance: r.Distance,
		}); err != nil {
			return err
		}
	}
	return nil
}
