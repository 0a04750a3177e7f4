package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jordanhubbard/promptvault/pkg/client"
	"github.com/jordanhubbard/promptvault/pkg/models"
)

func newPromptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Manage prompts",
	}
	cmd.AddCommand(newPromptListCommand())
	cmd.AddCommand(newPromptShowCommand())
	cmd.AddCommand(newPromptCreateCommand())
	cmd.AddCommand(newPromptUpdateCommand())
	cmd.AddCommand(newPromptDeleteCommand())
	return cmd
}

func newPromptListCommand() *cobra.Command {
	var (
		category string
		search   string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompts",
		Example: `  vaultctl prompt list
  vaultctl prompt list --category=orchestrator --search=review`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()
			req := &models.ListPromptsRequest{
				Category: models.PromptCategory(category),
				Search:   search,
				Page:     page,
				PageSize: pageSize,
			}
			list, err := c.ListPrompts(cmd.Context(), req)
			if err != nil {
				return err
			}
			printJSON(list)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by category (orchestrator, task_execution)")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive match on title and description")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Items per page (max 100)")
	return cmd
}

func newPromptShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <prompt-id>",
		Short: "Show a prompt with its current content and latest evaluation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()
			prompt, err := c.GetPrompt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJSON(prompt)
			return nil
		},
	}
}

func newPromptCreateCommand() *cobra.Command {
	var (
		title       string
		description string
		content     string
		contentFile string
		category    string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new prompt",
		Example: `  vaultctl prompt create --title="Code reviewer" --category=task_execution --content="You are..."
  cat prompt.txt | vaultctl prompt create --title="Planner" --category=orchestrator --content-file=-`,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := resolveContent(content, contentFile)
			if err != nil {
				return err
			}
			c := newAPIClient()
			prompt, err := c.CreatePrompt(cmd.Context(), &models.CreatePromptRequest{
				Title:       title,
				Description: description,
				Content:     body,
				Category:    models.PromptCategory(category),
			})
			if err != nil {
				return err
			}
			printJSON(prompt)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Prompt title (required)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Prompt description")
	cmd.Flags().StringVar(&content, "content", "", "Prompt content")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Read content from file ('-' for stdin)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category: orchestrator or task_execution (required)")
	return cmd
}

func newPromptUpdateCommand() *cobra.Command {
	var (
		title         string
		description   string
		content       string
		contentFile   string
		category      string
		changeSummary string
		lockVersion   int
	)
	cmd := &cobra.Command{
		Use:   "update <prompt-id>",
		Short: "Update a prompt, creating a new version when content changes",
		Long: `Updates a prompt. --lock-version must match the value from the last read
or the server rejects the update with CONFLICT.`,
		Example: `  vaultctl prompt update 4f2a... --content-file=new.txt --summary="Tighten output format" --lock-version=3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &models.UpdatePromptRequest{
				ChangeSummary: changeSummary,
				LockVersion:   lockVersion,
			}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("content") || cmd.Flags().Changed("content-file") {
				body, err := resolveContent(content, contentFile)
				if err != nil {
					return err
				}
				req.Content = &body
			}
			if cmd.Flags().Changed("category") {
				cat := models.PromptCategory(category)
				req.Category = &cat
			}

			c := newAPIClient()
			prompt, err := c.UpdatePrompt(cmd.Context(), args[0], req)
			if client.IsConflict(err) {
				return fmt.Errorf("prompt was modified by someone else; re-read it and retry with the new lock_version")
			}
			if err != nil {
				return err
			}
			printJSON(prompt)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVar(&content, "content", "", "New content")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Read content from file ('-' for stdin)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New category")
	cmd.Flags().StringVar(&changeSummary, "summary", "", "Change summary recorded on the new version")
	cmd.Flags().IntVar(&lockVersion, "lock-version", 0, "Expected lock_version (required)")
	return cmd
}

func newPromptDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <prompt-id>",
		Short: "Delete a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()
			if err := c.DeletePrompt(cmd.Context(), args[0]); err != nil {
				return err
			}
			printJSON(map[string]string{"deleted": args[0]})
			return nil
		},
	}
}

// resolveContent picks between the inline flag and a file path, where "-"
// reads stdin.
func resolveContent(inline, file string) (string, error) {
	if file == "" {
		return inline, nil
	}
	if inline != "" {
		return "", fmt.Errorf("--content and --content-file are mutually exclusive")
	}
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}
	return string(data), nil
}
