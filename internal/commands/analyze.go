package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rolledback/FinanceCsvAnalysis/internal/audit"
	"github.com/rolledback/FinanceCsvAnalysis/internal/pipeline"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <directory> [config]",
		Short: "Classify the bank exports in a directory and write out/activities.csv",
		Long: `Reads every .csv, .ofx and .qfx file in the directory, classifies each
activity with the first matching rule, removes activities that cancel each
other out and writes the rest to out/activities.csv sorted by date.

The rule config defaults to <directory>/config.json.`,
		Args: dirArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := pipeline.Analyze(a.options(cmd, args))
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "Analyzed", res)
			return nil
		},
	}
}

func newJoinCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "join <directory> [config]",
		Short: "Combine activity files in a directory and write out/activities.csv",
		Long: `Reads every .csv file in the directory as an activity file written by
analyze, applies the config's actions to the combined list and writes the
result to out/activities.csv.`,
		Args: dirArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := pipeline.Join(a.options(cmd, args))
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "Joined", res)
			return nil
		},
	}
}

func printResult(w io.Writer, verb string, res *pipeline.Result) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Fprintf(w, "%s %d file(s): ", verb, len(res.Files))
	fmt.Fprintf(w, "%d read, %d cancelled out, ", res.Read, res.Cancelled)
	green.Fprintf(w, "%d written\n", res.Written)

	fmt.Fprintf(w, "  activities: %s\n", res.ActivitiesPath)
	fmt.Fprintf(w, "  audit:      %s\n", res.AuditPath)
	if res.ReportPath != "" {
		fmt.Fprintf(w, "  report:     %s\n", res.ReportPath)
	}

	if n := res.Findings[audit.KindDefault]; n > 0 {
		yellow.Fprintf(w, "%d activities matched no rule\n", n)
	}
	if n := res.Findings[audit.KindConflict]; n > 0 {
		yellow.Fprintf(w, "%d rule conflicts, see the audit log\n", n)
	}
	if len(res.UnusedRules) > 0 {
		var titles []string
		for _, r := range res.UnusedRules {
			titles = append(titles, r.Title)
		}
		sort.Strings(titles)
		yellow.Fprintf(w, "%d rule(s) never applied: %s\n", len(titles), strings.Join(titles, ", "))
	}
}
