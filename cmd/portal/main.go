// cmd/portal/main.go
//
// This is the entry point for the portal CLI. Running `portal` from any
// directory initialises .portal/ there and launches the TUI; `portal stub`
// serves a fake backend for local runs.

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/mortgage-portal/internal/config"
	"github.com/kingrea/mortgage-portal/internal/tui"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		dir            string
		borrowerURL    string
		underwriterURL string
		letterURL      string
	)
	cmd := &cobra.Command{
		Use:           "portal",
		Short:         "Mortgage review portal for borrowers and underwriters",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir, err := resolveDir(dir)
			if err != nil {
				return err
			}
			if err := config.InitPortalDir(workDir); err != nil {
				return fmt.Errorf("initialize %s directory: %w", config.PortalDir, err)
			}
			cfg, err := config.NewConfig(workDir)
			if err != nil {
				return err
			}
			if err := cfg.OverrideServices(borrowerURL, underwriterURL, letterURL); err != nil {
				return err
			}
			app, err := tui.NewApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			p := tea.NewProgram(app, tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run TUI: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding .portal/ (defaults to the working directory)")
	cmd.Flags().StringVar(&borrowerURL, "borrower-url", "", "borrower helper service base URL")
	cmd.Flags().StringVar(&underwriterURL, "underwriter-url", "", "underwriter helper service base URL")
	cmd.Flags().StringVar(&letterURL, "letter-url", "", "letter service base URL")
	cmd.AddCommand(stubCmd())
	return cmd
}

func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cwd, nil
}
