package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dev101/coa/internal/annotate"
	"github.com/dev101/coa/internal/model"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Split a text into commented segments",
	Long: `Read an analysis text and a JSON array of comments
({"commentStartIndex", "commentEndIndex", "commentContent"}) and print the
text with every commented span marked.

Offsets count UTF-16 code units. Overlapping or out of range comments are clipped
unless --strict is given, in which case they are reported as errors.`,
	Args: cobra.NoArgs,
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().String("text", "", "file holding the analysis text (- for stdin)")
	annotateCmd.Flags().String("comments", "", "JSON file holding the comments")
	annotateCmd.Flags().StringP("format", "f", "text", "output format: text, json, markdown, html")
	annotateCmd.Flags().Bool("strict", false, "reject overlapping or out of range comments")
	annotateCmd.MarkFlagRequired("text")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	textPath, _ := cmd.Flags().GetString("text")
	commentsPath, _ := cmd.Flags().GetString("comments")
	format, _ := cmd.Flags().GetString("format")
	strict, _ := cmd.Flags().GetBool("strict")

	text, err := readInput(cmd.InOrStdin(), textPath)
	if err != nil {
		return fmt.Errorf("reading text: %w", err)
	}

	var comments []*model.CommitComment
	if commentsPath != "" {
		data, err := readInput(cmd.InOrStdin(), commentsPath)
		if err != nil {
			return fmt.Errorf("reading comments: %w", err)
		}
		if err := json.Unmarshal(data, &comments); err != nil {
			return fmt.Errorf("parsing comments: %w", err)
		}
	}

	anns := annotate.FromComments(comments)
	var segs []annotate.Segment[model.CommitComment]
	if strict {
		segs, err = annotate.AnnotateStrict(string(text), anns)
		if err != nil {
			return err
		}
	} else {
		segs = annotate.Annotate(string(text), anns)
	}

	return writeReport(cmd.OutOrStdout(), format, report{Segments: segs})
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
