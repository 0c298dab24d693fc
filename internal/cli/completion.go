package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for codescribe.

To load completions in your current shell session:
  source <(codescribe completion bash)
  source <(codescribe completion zsh)`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().GenBashCompletionV2(os.Stdout, true); err != nil {
				return fmt.Errorf("generating bash completion: %w", err)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().GenZshCompletion(os.Stdout); err != nil {
				return fmt.Errorf("generating zsh completion: %w", err)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().GenFishCompletion(os.Stdout, true); err != nil {
				return fmt.Errorf("generating fish completion: %w", err)
			}
			return nil
		},
	})

	return cmd
}
