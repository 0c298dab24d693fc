package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/imyousuf/codescribe/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		noInput  bool
		force    bool
		repoRoot string
		provider string
		model    string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .codescribe.toml config file",
		Long: `Create a .codescribe.toml config file in the working directory.

Runs an interactive wizard when attached to a terminal; pass --no-input
to write a default config driven by flags instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigName + "." + config.DefaultConfigType
			if cfgFile != "" {
				path = cfgFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			cfg.Repository.Root = repoRoot
			if provider != "" {
				cfg.LLM.Provider = provider
			}
			if model != "" {
				cfg.LLM.MainModel = model
			}
			if cfg.LLM.Provider == "anthropic" {
				cfg.LLM.APIKeyEnv = "ANTHROPIC_API_KEY"
			}

			if !noInput && isTerminal() {
				if err := runInteractiveInit(cfg); err != nil {
					return err
				}
			}

			if err := config.Write(cfg, path); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render("Config written"))
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("File"), valueStyle.Render(path))
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render("API key env"), valueStyle.Render(cfg.LLM.APIKeyEnv))
			fmt.Fprintf(out, "\nSet %s, then run: codescribe generate\n", cfg.LLM.APIKeyEnv)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noInput, "no-input", false, "skip the interactive wizard")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&repoRoot, "root", ".", "repository root to document")
	cmd.Flags().StringVar(&provider, "provider", "", "model provider (openai or anthropic)")
	cmd.Flags().StringVar(&model, "model", "", "main model name")

	return cmd
}

// runInteractiveInit collects the config interactively, mutating cfg in
// place. Flag-provided values show up as the form defaults.
func runInteractiveInit(cfg *config.Config) error {
	var confirm bool

	providerOptions := []huh.Option[string]{
		huh.NewOption("OpenAI-compatible API", "openai"),
		huh.NewOption("Anthropic API", "anthropic"),
	}
	typeOptions := []huh.Option[string]{
		huh.NewOption("General (no emphasis)", ""),
		huh.NewOption("API reference", "api"),
		huh.NewOption("Architecture", "architecture"),
		huh.NewOption("User guide", "user-guide"),
		huh.NewOption("Developer onboarding", "developer"),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Repository root").
				Description("Directory to analyze and document").
				Value(&cfg.Repository.Root).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("repository root cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Output directory").
				Value(&cfg.Output.Dir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("output directory cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Documentation emphasis").
				Options(typeOptions...).
				Value(&cfg.Docs.Type),
		).Title("Project"),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model provider").
				Options(providerOptions...).
				Value(&cfg.LLM.Provider),
			huh.NewInput().
				Title("Main model").
				Value(&cfg.LLM.MainModel).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("model name cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("API key environment variable").
				Value(&cfg.LLM.APIKeyEnv),
		).Title("Model"),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Write config?").
				Value(&confirm),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("aborted")
	}
	return nil
}

// isTerminal reports whether stdin is attached to a terminal.
func isTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
