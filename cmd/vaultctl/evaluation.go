package main

import (
	"github.com/spf13/cobra"

	"github.com/jordanhubbard/promptvault/pkg/models"
)

func newEvaluateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <prompt-id>",
		Short: "Run an AI evaluation of the prompt's current version",
		Long: `Scores the prompt's current content against six quality criteria and
prints the completed evaluation. This can take a while with a live
model provider.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()
			eval, err := c.Evaluate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJSON(eval)
			return nil
		},
	}
}

func newEvaluationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluation",
		Short: "Inspect past evaluations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <evaluation-id>",
		Short: "Show an evaluation with its per-criterion scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()
			eval, err := c.GetEvaluation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJSON(eval)
			return nil
		},
	})
	return cmd
}

func newDashboardCommand() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show evaluation statistics grouped by category",
		Example: `  vaultctl dashboard
  vaultctl dashboard --category=orchestrator`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()
			dash, err := c.Dashboard(cmd.Context(), models.PromptCategory(category))
			if err != nil {
				return err
			}
			printJSON(dash)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Limit to one category")
	return cmd
}
