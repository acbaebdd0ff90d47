package inspect

import (
	"encoding/json"
	"fmt"
	"github.com/myrjola/resqlink/cmd/cli/clictx"
	"github.com/myrjola/resqlink/internal/assistant"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/spf13/cobra"
	"text/tabwriter"
)

var Group = &cobra.Group{
	ID:    "inspect",
	Title: "Inspection",
}

func init() {
	Snapshot.Flags().Bool("json", false, "print the aggregate metrics as JSON")
	Rank.Flags().Int("limit", 0, "show only the first n cases, 0 shows all")
}

var Snapshot = &cobra.Command{
	Use:     "snapshot",
	GroupID: "inspect",
	Short:   "Fetch the backend once and summarise it",
	Long:    "Fetches every collection once and prints the counts the dashboard overview shows",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		eng, _, err := clictx.Load(cmd)
		if err != nil {
			return err
		}
		defer eng.Stop()

		d := eng.Dashboard()
		out := cmd.OutOrStdout()
		asJSON, err := cmd.Flags().GetBool("json")
		if err != nil {
			return errors.Wrap(err, "invalid json flag")
		}
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return errors.Wrap(enc.Encode(d.Metrics), "encode metrics")
		}
		_, err = fmt.Fprint(out, assistant.Briefing(d.View, d.Metrics, d.Ranked))
		return errors.Wrap(err, "write snapshot")
	},
}

var Rank = &cobra.Command{
	Use:     "rank",
	GroupID: "inspect",
	Short:   "List cases by priority",
	Long:    "Scores every case by urgency and recency and lists them highest priority first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return errors.Wrap(err, "invalid limit flag")
		}
		eng, _, err := clictx.Load(cmd)
		if err != nil {
			return err
		}
		defer eng.Stop()

		ranked := eng.Dashboard().Ranked
		if limit > 0 && limit < len(ranked) {
			ranked = ranked[:limit]
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding
		_, _ = fmt.Fprintln(tw, "RANK\tID\tNAME\tURGENCY\tSTATUS\tSCORE")
		for i, r := range ranked {
			_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%.2f\n",
				i+1, r.Case.ID, r.Case.Name, r.Case.Urgency, r.Case.Status, r.Score)
		}
		return errors.Wrap(tw.Flush(), "flush table")
	},
}
