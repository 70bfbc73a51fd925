package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kittclouds/notegraph/pkg/notes"
)

var importGlob string

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Import markdown files as root notes",
	Long: `Import creates one root note per matching file. The title is taken from the
frontmatter "title" field or the file name; the body becomes the content.
Files whose title is already taken are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := service.ImportFiles(cmd.Context(), cfg.Owner, os.DirFS(args[0]), importGlob)
		if report != nil {
			for _, r := range report.Imported {
				fmt.Printf("imported  %s  %s\n", r.UUID, r.Title)
			}
			for _, s := range report.Skipped {
				fmt.Printf("skipped   %s: %s\n", s.Path, s.Reason)
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importGlob, "glob", notes.DefaultImportPattern, "Files to import, relative to dir")
}
