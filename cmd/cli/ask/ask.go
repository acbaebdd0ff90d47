package ask

import (
	"fmt"
	"github.com/myrjola/resqlink/cmd/cli/clictx"
	"github.com/myrjola/resqlink/internal/assistant"
	"github.com/myrjola/resqlink/internal/envstruct"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/spf13/cobra"
	"os"
	"strings"
)

var Group = &cobra.Group{
	ID:    "assistant",
	Title: "Assistant",
}

var Ask = &cobra.Command{
	Use:     "ask [question]",
	GroupID: "assistant",
	Short:   "Ask the assistant about the current cases",
	Long:    `Fetches the backend once and asks the OpenAI assistant about it. Requires OPENAI_API_KEY.`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg assistant.Config
		if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
			return errors.Wrap(err, "populate assistant config")
		}
		eng, logger, err := clictx.Load(cmd)
		if err != nil {
			return err
		}
		defer eng.Stop()

		d := eng.Dashboard()
		a := assistant.New(cfg, logger)
		answer, err := a.Ask(cmd.Context(), strings.Join(args, " "), assistant.Briefing(d.View, d.Metrics, d.Ranked))
		if err != nil {
			return errors.Wrap(err, "ask assistant")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), answer)
		return errors.Wrap(err, "write answer")
	},
}
