// Command catalogctl validates course catalogs and converts author
// spreadsheets into catalog YAML.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Validate and convert learning map catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	root.AddCommand(newValidateCmd(out), newConvertCmd(out))
	return root
}

func newValidateCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog.yaml|dir>",
		Short: "Check a catalog against the schema and its cross-references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(args[0])
			if err != nil {
				color.New(color.FgHiRed).Fprintf(out, "invalid: %v\n", err)
				return err
			}
			printSummary(out, cat)
			color.New(color.FgGreen).Fprintln(out, "catalog is valid")
			return nil
		},
	}
}

func newConvertCmd(out io.Writer) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "convert <catalog.xlsx> <catalog.yaml>",
		Short: "Convert an author workbook into catalog YAML",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]
			if !force {
				if _, err := os.Stat(dst); err == nil {
					return fmt.Errorf("%s exists (use --force to overwrite)", dst)
				}
			}

			f, err := os.Open(src)
			if err != nil {
				return err
			}
			defer f.Close()

			cat, err := catalog.ReadWorkbook(f)
			if err != nil {
				color.New(color.FgHiRed).Fprintf(out, "conversion failed: %v\n", err)
				return err
			}
			data, err := cat.Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(dst, data, 0o644); err != nil {
				return err
			}

			printSummary(out, cat)
			color.New(color.FgGreen).Fprintf(out, "wrote %s\n", dst)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing output file")
	return cmd
}

func printSummary(out io.Writer, cat *catalog.Catalog) {
	topics, subtopics, questions, unmapped := 0, 0, 0, 0
	for _, c := range cat.Concepts {
		topics += len(c.Topics)
		questions += len(c.Quiz.Questions)
		for _, t := range c.Topics {
			subtopics += len(t.Subtopics)
			for _, s := range t.Subtopics {
				if s.ContentID == 0 {
					unmapped++
				}
			}
		}
	}

	fmt.Fprintf(out, "regions:   %d\n", len(cat.Regions))
	fmt.Fprintf(out, "concepts:  %d\n", len(cat.Concepts))
	fmt.Fprintf(out, "topics:    %d\n", topics)
	fmt.Fprintf(out, "subtopics: %d\n", subtopics)
	fmt.Fprintf(out, "questions: %d\n", questions)
	if unmapped > 0 {
		color.New(color.FgYellow).Fprintf(out, "%d subtopic(s) have no content_id; their video counts stay unknown\n", unmapped)
	}
	fmt.Fprintf(out, "version:   %s\n", catalog.Fingerprint(cat)[:12])
}
