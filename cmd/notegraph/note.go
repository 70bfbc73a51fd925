package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kittclouds/notegraph/pkg/notes"
)

var (
	noteContent string
	noteFile    string
	noteParent  string
	noteTitle   string
	noteJSON    bool
)

// readContent returns the --file contents ("-" for stdin) or --content.
func readContent() (string, error) {
	switch noteFile {
	case "":
		return noteContent, nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	default:
		data, err := os.ReadFile(noteFile)
		return string(data), err
	}
}

var createCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := readContent()
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}

		view, err := service.CreateNote(cmd.Context(), cfg.Owner, notes.NoteInput{
			Title:      args[0],
			Content:    content,
			ParentUUID: noteParent,
		})
		if err != nil {
			return err
		}
		return printNote(view)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [uuid]",
	Short: "Change a note's title or content",
	Long:  `Update sets only the fields given. Tags, children and links are re-derived when the content changes.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch notes.NotePatch
		if cmd.Flags().Changed("title") {
			patch.Title = &noteTitle
		}
		if cmd.Flags().Changed("content") || cmd.Flags().Changed("file") {
			content, err := readContent()
			if err != nil {
				return fmt.Errorf("failed to read content: %w", err)
			}
			patch.Content = &content
		}
		if patch.Title == nil && patch.Content == nil {
			return fmt.Errorf("nothing to update: pass --title, --content or --file")
		}

		view, err := service.UpdateNote(cmd.Context(), cfg.Owner, args[0], patch)
		if err != nil {
			return err
		}
		return printNote(view)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [uuid]",
	Short: "Delete a note and everything under it",
	Long:  `Delete removes the note and its subtree. Links pointing at removed notes are rewritten to [DELETED: Title].`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := service.DeleteNote(cmd.Context(), cfg.Owner, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d note(s)\n", n)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [uuid]",
	Short: "Show a note with its tags, children and links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := service.GetNote(cmd.Context(), cfg.Owner, args[0])
		if err != nil {
			return err
		}
		return printNote(view)
	},
}

func printNote(v *notes.NoteView) error {
	if noteJSON {
		return printJSON(v)
	}

	fmt.Printf("%s  %s\n", v.UUID, v.Title)
	if v.ParentUUID != "" {
		fmt.Printf("parent:    %s\n", v.ParentUUID)
	}
	if len(v.Tags) > 0 {
		fmt.Printf("tags:      #%s\n", strings.Join(v.Tags, " #"))
	}
	for _, c := range v.Children {
		fmt.Printf("child:     %s  %s\n", c.UUID, c.Title)
	}
	for _, l := range v.Links {
		fmt.Printf("link:      %s  %s (%s)\n", l.Note.UUID, l.Note.Title, l.Title)
	}
	for _, l := range v.Backlinks {
		fmt.Printf("backlink:  %s  %s (%s)\n", l.Note.UUID, l.Note.Title, l.Title)
	}
	if v.Content != "" {
		fmt.Printf("\n%s\n", v.Content)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(createCmd, updateCmd, deleteCmd, showCmd)

	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().StringVarP(&noteContent, "content", "c", "", "Note content")
		c.Flags().StringVarP(&noteFile, "file", "f", "", "Read content from a file (- for stdin)")
	}
	createCmd.Flags().StringVar(&noteParent, "parent", "", "UUID of the parent note")
	updateCmd.Flags().StringVarP(&noteTitle, "title", "t", "", "New title")

	for _, c := range []*cobra.Command{createCmd, updateCmd, showCmd} {
		c.Flags().BoolVar(&noteJSON, "json", false, "Output in JSON format")
	}
}
