package commands

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rolledback/FinanceCsvAnalysis/internal/config"
	"github.com/rolledback/FinanceCsvAnalysis/internal/rules"
)

func newRulesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules <directory> [config]",
		Short: "List the expanded rules in match order",
		Args:  dirArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(args[0], config.DefaultFileName)
			if len(args) > 1 {
				path = args[1]
			}
			cfg, err := config.Load(path, args[0], a.logger)
			if err != nil {
				return err
			}
			rs, err := rules.Expand(cfg.Rules)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Title", "Pattern", "Type", "Categories", "Origin"})
			table.SetAutoFormatHeaders(false)
			table.SetAutoWrapText(false)
			for _, r := range append(rs, rules.Default) {
				id, origin := strconv.Itoa(r.ID), "-"
				if r.ID == rules.DefaultID {
					id = "-"
				}
				if r.Origin != "" {
					origin = filepath.Base(r.Origin)
				}
				table.Append([]string{id, r.Title, r.Pattern, r.Result.Type, strings.Join(r.Result.Categories, ";"), origin})
			}
			table.Render()
			return nil
		},
	}
}
