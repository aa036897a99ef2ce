package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mark2epub/internal/converter"
)

var rootCmd = &cobra.Command{
	Use:   "mark2epub <markdown_directory>",
	Short: "Package a directory of Markdown chapters into an EPUB3 file",
	Long: `mark2epub assembles Markdown chapter files, an images/ directory, a css/
directory, and a description.json descriptor into a single EPUB3 container.

A missing description.json is synthesized from the *.md files found in the
directory and persisted so repeated builds are reproducible.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceDir := filepath.Clean(args[0])
		outputPath, _ := cmd.Flags().GetString("output")
		maxDimension, _ := cmd.Flags().GetInt("max-image-dimension")
		interactive, _ := cmd.Flags().GetBool("interactive")
		strict, _ := cmd.Flags().GetBool("strict-metadata")
		noNCX, _ := cmd.Flags().GetBool("no-ncx")

		if interactive && strict {
			return fmt.Errorf("--interactive and --strict-metadata are mutually exclusive")
		}

		if outputPath == "" {
			outputPath = defaultOutputPath(sourceDir)
		}

		opts := converter.ConvertOptions{
			SourceDir:         sourceDir,
			OutputPath:        outputPath,
			MaxImageDimension: maxDimension,
			OmitNCX:           noNCX,
		}
		switch {
		case strict:
			opts.MetadataPolicy = converter.PolicyFailIfMissing
		case interactive:
			opts.MetadataPolicy = converter.PolicyPrompt
			opts.Prompt = stdinPrompt(cmd.InOrStdin(), cmd.OutOrStdout())
		default:
			opts.MetadataPolicy = converter.PolicyUseDefaults
		}

		log.Printf("Packaging: %s -> %s", sourceDir, outputPath)
		if err := converter.NewPipeline(opts).Convert(); err != nil {
			return fmt.Errorf("packaging failed: %w", err)
		}
		return nil
	},
}

// defaultOutputPath places <basename>.epub inside the source directory.
func defaultOutputPath(sourceDir string) string {
	return filepath.Join(sourceDir, filepath.Base(sourceDir)+".epub")
}

// stdinPrompt builds the interactive metadata callback. All terminal I/O
// lives here; the engine only sees the injected function.
func stdinPrompt(in io.Reader, out io.Writer) converter.PromptFunc {
	reader := bufio.NewReader(in)
	return func(field, fallback string) (string, error) {
		fmt.Fprintf(out, "%s [%s]: ", field, fallback)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", nil
		}
		return strings.TrimSpace(line), nil
	}
}

func init() {
	rootCmd.Flags().StringP("output", "o", "", "Output file path (default: <directory>/<name>.epub)")
	rootCmd.Flags().Int("max-image-dimension", converter.DefaultMaxDimension, "Longest image side after optimization, in pixels")
	rootCmd.Flags().Bool("interactive", false, "Prompt for missing metadata fields")
	rootCmd.Flags().Bool("strict-metadata", false, "Fail when title or creator metadata is missing")
	rootCmd.Flags().Bool("no-ncx", false, "Omit the legacy toc.ncx navigation file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
