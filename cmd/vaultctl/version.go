package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Inspect and restore prompt version history",
	}
	cmd.AddCommand(newVersionListCommand())
	cmd.AddCommand(newVersionShowCommand())
	cmd.AddCommand(newVersionRestoreCommand())
	return cmd
}

func newVersionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <prompt-id>",
		Short: "List all versions of a prompt, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()
			versions, err := c.ListVersions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJSON(versions)
			return nil
		},
	}
}

func newVersionShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <prompt-id> <version-number>",
		Short: "Show a single version including its full content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			c := newAPIClient()
			v, err := c.GetVersion(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
			printJSON(v)
			return nil
		},
	}
}

func newVersionRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <prompt-id> <version-number>",
		Short: "Restore an old version as a new version",
		Long: `Copies the content of the named version into a new version at the top of
the history. The old version is left untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			c := newAPIClient()
			v, err := c.RestoreVersion(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
			printJSON(v)
			return nil
		},
	}
}
