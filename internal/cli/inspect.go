package cli

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lecture-quiz-service/internal/quiz"
)

// NewInspectCmd loads a payload file and prints the canonical question set.
func NewInspectCmd() *cobra.Command {
	var hint string
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the canonical form of a question set payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			set, err := quiz.Load(raw, hint)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(set)
		},
	}
	cmd.Flags().StringVar(&hint, "hint", "", "display type label used as a type hint")
	return cmd
}
