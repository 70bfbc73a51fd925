package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var suggestJSON bool

var suggestCmd = &cobra.Command{
	Use:   "suggest [uuid]",
	Short: "Find titles of other notes mentioned in a note but not linked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suggestions, err := service.SuggestLinks(cmd.Context(), cfg.Owner, args[0])
		if err != nil {
			return err
		}

		if suggestJSON {
			return printJSON(suggestions)
		}
		for _, s := range suggestions {
			fmt.Printf("%d-%d  %q -> [%s](%s)\n", s.Start, s.End, s.Text, s.Text, s.Note.UUID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "Output in JSON format")
}
