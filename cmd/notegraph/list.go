package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/notegraph/pkg/notes"
)

var (
	listJSON   bool
	listRoots  bool
	listParent string
	listTag    string
	listSkip   int
	listLimit  int
	linksBack  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, most recently updated first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := service.ListNotes(cmd.Context(), cfg.Owner, notes.ListFilter{
			ParentUUID: listParent,
			RootsOnly:  listRoots,
			Tag:        listTag,
			Skip:       listSkip,
			Limit:      listLimit,
		})
		if err != nil {
			return err
		}

		if listJSON {
			return printJSON(summaries)
		}
		for _, s := range summaries {
			fmt.Printf("%s  %s\n", s.UUID, s.Title)
		}
		return nil
	},
}

var linksCmd = &cobra.Command{
	Use:   "links [uuid]",
	Short: "List the notes a note links to, or with --back the notes linking to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		get := service.LinkedNotes
		if linksBack {
			get = service.Backlinks
		}
		links, err := get(cmd.Context(), cfg.Owner, args[0])
		if err != nil {
			return err
		}

		if listJSON {
			return printJSON(links)
		}
		for _, l := range links {
			fmt.Printf("%s  %s (%s)\n", l.Note.UUID, l.Note.Title, l.Title)
		}
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags with the number of notes using them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := service.ListTags(cmd.Context(), cfg.Owner)
		if err != nil {
			return err
		}

		if listJSON {
			return printJSON(tags)
		}
		for _, tg := range tags {
			fmt.Printf("#%s\t%d\n", tg.Name, tg.Notes)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, linksCmd, tagsCmd)

	listCmd.Flags().BoolVar(&listRoots, "roots", false, "Only notes without a parent")
	listCmd.Flags().StringVar(&listParent, "parent", "", "Only children of this note")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Only notes with this tag")
	listCmd.Flags().IntVar(&listSkip, "skip", 0, "Skip this many notes")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Show at most this many notes (0 for all)")
	linksCmd.Flags().BoolVar(&linksBack, "back", false, "Show backlinks instead")

	for _, c := range []*cobra.Command{listCmd, linksCmd, tagsCmd} {
		c.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	}
}
