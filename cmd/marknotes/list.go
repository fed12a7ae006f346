package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	faint = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, db, err := openService()
		if err != nil {
			return err
		}
		defer db.Close()

		list, err := svc.ListNotes()
		if err != nil {
			return fmt.Errorf("list notes: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No notes found.")
			return nil
		}

		for _, n := range list {
			fmt.Fprintf(out, "%6s  %s\n", faint(n.ID), bold(n.Title))
			fmt.Fprintf(out, "        %s %s\n", faint("Updated:"), faint(n.UpdatedAt.Local().Format("2006-01-02 15:04")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
