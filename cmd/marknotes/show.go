package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/dukerupert/marknotes/internal/markdown"
	"github.com/dukerupert/marknotes/internal/model"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a note",
	Long:  `Display a note with its markdown rendered for the terminal, or as HTML with --html. Front matter keys are listed under the header.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		htmlFlag, _ := cmd.Flags().GetBool("html")
		styleFlag, _ := cmd.Flags().GetString("style")

		svc, db, err := openService()
		if err != nil {
			return err
		}
		defer db.Close()

		out := cmd.OutOrStdout()
		if htmlFlag {
			html, err := svc.GetNoteAsHTML(id)
			if errors.Is(err, model.ErrNotFound) {
				return fmt.Errorf("note with ID %d not found", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(out, html)
			return nil
		}

		note, err := svc.GetNote(id)
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("note with ID %d not found", id)
		}
		if err != nil {
			return err
		}

		writeNoteHeader(out, note)
		if note.MarkdownContent != "" {
			fmt.Fprint(out, markdown.RenderTerminal(note.MarkdownContent, styleFlag, 80))
		}
		return nil
	},
}

// writeNoteHeader prints the title, timestamps and any front matter keys.
func writeNoteHeader(out io.Writer, note *model.Note) {
	fmt.Fprintln(out, bold(note.Title))
	fmt.Fprintf(out, "%s %s\n", faint("Created:"), faint(note.CreatedAt.Local().Format("2006-01-02 15:04")))
	fmt.Fprintf(out, "%s %s\n", faint("Updated:"), faint(note.UpdatedAt.Local().Format("2006-01-02 15:04")))
	if meta := markdown.Metadata(note.MarkdownContent); meta != nil {
		for _, k := range slices.Sorted(maps.Keys(meta)) {
			fmt.Fprintf(out, "%s %v\n", faint(k+":"), meta[k])
		}
	}
}

func init() {
	showCmd.Flags().Bool("html", false, "print the sanitized HTML rendering")
	showCmd.Flags().String("style", "auto", "glamour style: auto, dark, light, ascii, notty")
	rootCmd.AddCommand(showCmd)
}
