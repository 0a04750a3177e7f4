package main

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jordanhubbard/promptvault/pkg/client"
)

const version = "1.0.0"

var (
	serverURL string
	apiKey    string
	token     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vaultctl",
		Short: "PromptVault CLI - manage prompts from the command line",
		Long: `vaultctl is a command-line interface for PromptVault servers.
All output is structured JSON (pipe through jq for human-readable formatting).`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", getDefaultServer(), "PromptVault server URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("VAULT_API_KEY"), "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("VAULT_TOKEN"), "Bearer token for authentication")

	rootCmd.AddCommand(newPromptCommand())
	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newEvaluateCommand())
	rootCmd.AddCommand(newEvaluationCommand())
	rootCmd.AddCommand(newDashboardCommand())
	rootCmd.AddCommand(newEventsCommand())
	rootCmd.AddCommand(newLoginCommand())
	rootCmd.AddCommand(newHealthCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getDefaultServer() string {
	if server := os.Getenv("VAULT_SERVER"); server != "" {
		return server
	}
	return "http://localhost:8080"
}

func newAPIClient() *client.Client {
	var opts []client.Option
	if apiKey != "" {
		opts = append(opts, client.WithAPIKey(apiKey))
	}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(serverURL, opts...)
}

// printJSON pretty-prints any value to stdout.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// --- Login ---

func newLoginCommand() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain a bearer token",
		Long: `Authenticates against the server and prints the issued token.
Export it as VAULT_TOKEN for subsequent commands.`,
		Example: `  vaultctl login --username=admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			fmt.Fprint(os.Stderr, "Password: ")
			pw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			c := newAPIClient()
			tok, err := c.Login(cmd.Context(), username, string(pw))
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	return cmd
}

// --- Health ---

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()
			if err := c.Health(cmd.Context()); err != nil {
				return err
			}
			printJSON(map[string]string{"status": "healthy", "server": serverURL})
			return nil
		},
	}
}
