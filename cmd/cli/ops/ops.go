// Package ops issues operator actions from the command line. Each command synchronises once, applies the action
// and waits for the backend to acknowledge it.
package ops

import (
	"fmt"
	"github.com/myrjola/resqlink/cmd/cli/clictx"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/models"
	"github.com/spf13/cobra"
	"log/slog"
	"strconv"
)

var Group = &cobra.Group{
	ID:    "ops",
	Title: "Operator actions",
}

func init() {
	Award.Flags().String("mode", string(models.PointsModeAdd), "add to the score or set it")
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer", slog.String("id", raw))
	}
	return id, nil
}

var CaseStatus = &cobra.Command{
	Use:     "case-status <case-id> <Active|Rejected|Solved>",
	GroupID: "ops",
	Short:   "Change the status of a case",
	Args:    cobra.ExactArgs(2), //nolint:mnd // id and status
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status := models.CaseStatus(args[1])
		eng, _, err := clictx.Load(cmd)
		if err != nil {
			return err
		}
		if err = eng.Mutator.ChangeCaseStatus(cmd.Context(), id, status); err != nil {
			eng.Stop()
			return errors.Wrap(err, "change case status")
		}
		if err = clictx.Settle(eng); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Case #%d marked %s.\n", id, status)
		return errors.Wrap(err, "write result")
	},
}

var VerifyTip = &cobra.Command{
	Use:     "verify-tip <tip-id>",
	GroupID: "ops",
	Short:   "Mark a tip as verified",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		eng, _, err := clictx.Load(cmd)
		if err != nil {
			return err
		}
		if err = eng.Mutator.VerifyTip(cmd.Context(), id); err != nil {
			eng.Stop()
			return errors.Wrap(err, "verify tip")
		}
		if err = clictx.Settle(eng); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Tip #%d verified.\n", id)
		return errors.Wrap(err, "write result")
	},
}

var ReviewRedemption = &cobra.Command{
	Use:     "review-redemption <redemption-id> <Approved|Rejected>",
	GroupID: "ops",
	Short:   "Approve or reject a pending reward redemption",
	Args:    cobra.ExactArgs(2), //nolint:mnd // id and outcome
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status := models.RedemptionStatus(args[1])
		eng, _, err := clictx.Load(cmd)
		if err != nil {
			return err
		}
		if err = eng.Mutator.ReviewRedemption(cmd.Context(), id, status); err != nil {
			eng.Stop()
			return errors.Wrap(err, "review redemption")
		}
		if err = clictx.Settle(eng); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Redemption #%d %s.\n", id, status)
		return errors.Wrap(err, "write result")
	},
}

var ReviewReport = &cobra.Command{
	Use:     "review-report <report-id> <Accepted|Rejected>",
	GroupID: "ops",
	Short:   "Accept or reject a pending sighting report",
	Args:    cobra.ExactArgs(2), //nolint:mnd // id and outcome
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status := models.ReportStatus(args[1])
		eng, _, err := clictx.Load(cmd)
		if err != nil {
			return err
		}
		if err = eng.Mutator.ReviewReport(cmd.Context(), id, status); err != nil {
			eng.Stop()
			return errors.Wrap(err, "review report")
		}
		if err = clictx.Settle(eng); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Sighting report #%d %s.\n", id, status)
		return errors.Wrap(err, "write result")
	},
}

var Award = &cobra.Command{
	Use:     "award <user-id> <points>",
	GroupID: "ops",
	Short:   "Add to or set a volunteer's honour score",
	Args:    cobra.ExactArgs(2), //nolint:mnd // id and points
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		mode, err := cmd.Flags().GetString("mode")
		if err != nil {
			return errors.Wrap(err, "invalid mode flag")
		}
		eng, _, err := clictx.Load(cmd)
		if err != nil {
			return err
		}
		defer eng.Stop()

		user, err := eng.Mutator.AwardPoints(cmd.Context(), id, args[1], models.PointsMode(mode))
		if err != nil {
			return errors.Wrap(err, "award points")
		}
		verb := "added"
		if models.PointsMode(mode) == models.PointsModeSet {
			verb = "set"
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Points %s successfully! New score: %d\n", verb, user.Score)
		return errors.Wrap(err, "write result")
	},
}
