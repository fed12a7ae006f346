package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dukerupert/marknotes/internal/markdown"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:   "lint [file]",
	Short: "Check markdown syntax",
	Long:  `Validate markdown read from a file, or from stdin when no file is given.`,
	Args:  cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Linting needs neither config nor a database.
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			src []byte
			err error
		)
		if len(args) == 1 {
			src, err = os.ReadFile(args[0])
		} else {
			src, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("read markdown: %w", err)
		}

		result := markdown.NewProcessor().Validate(string(src))
		out := cmd.OutOrStdout()
		if !result.IsValid {
			fmt.Fprintf(out, "%s %s\n", color.RedString("✗"), result.Message)
			fmt.Fprintln(out, faint(result.Error))
			return fmt.Errorf("invalid markdown")
		}
		fmt.Fprintf(out, "%s %s\n", color.GreenString("✓"), result.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
}
