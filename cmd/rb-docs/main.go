package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"repobranch/internal/cli"
)

func main() {
	if err := newDocsCommand(os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}

// newDocsCommand regenerates the markdown and man page reference for rb.
func newDocsCommand(getenv func(string) string) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:          "rb-docs",
		Short:        "Generate the rb command reference",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			date, err := manDate(getenv("SOURCE_DATE_EPOCH"))
			if err != nil {
				return err
			}
			root := cli.NewRootCommand(io.Discard, io.Discard)
			return generateDocs(root, outDir, date)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "docs", "directory receiving cli/ and man/man1/")
	return cmd
}

// manDate pins the man page date for reproducible builds. An empty epoch
// leaves the date to cobra.
func manDate(epoch string) (*time.Time, error) {
	if epoch == "" {
		return nil, nil
	}
	seconds, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SOURCE_DATE_EPOCH %q: %w", epoch, err)
	}
	date := time.Unix(seconds, 0).UTC()
	return &date, nil
}

func generateDocs(root *cobra.Command, outDir string, date *time.Time) error {
	if root == nil {
		return errors.New("root command is required")
	}
	disableAutoGenTag(root)

	markdownDir := filepath.Join(outDir, "cli")
	manDir := filepath.Join(outDir, "man", "man1")
	for _, dir := range []string{markdownDir, manDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	if err := doc.GenMarkdownTree(root, markdownDir); err != nil {
		return fmt.Errorf("generate markdown docs: %w", err)
	}
	head := &doc.GenManHeader{
		Title:   "RB",
		Section: "1",
		Source:  "repobranch",
		Manual:  "repobranch manual",
		Date:    date,
	}
	if err := doc.GenManTree(root, head, manDir); err != nil {
		return fmt.Errorf("generate man pages: %w", err)
	}
	return nil
}

func disableAutoGenTag(cmd *cobra.Command) {
	cmd.DisableAutoGenTag = true
	for _, child := range cmd.Commands() {
		disableAutoGenTag(child)
	}
}
