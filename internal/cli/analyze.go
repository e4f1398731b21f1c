package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/ingest"
	"github.com/darved2305/VeriTextAI/internal/model"
	"github.com/darved2305/VeriTextAI/internal/workspace"
)

type analyzeOptions struct {
	text      string
	checkType string
	asJSON    bool
	save      bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Analyse a document",
		Long:  `Analyse a PDF, DOCX, HTML or text file, standard input, or --text and print the report.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.text, "text", "t", "", "Analyse this text instead of a file")
	cmd.Flags().StringVar(&opts.checkType, "type", string(model.CheckPlagiarism), "Check type: plagiarism, ai_detection, paraphrase, code_similarity")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full report as JSON")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Write the report to the data directory")
	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions, args []string) error {
	checkType, err := model.ParseCheckType(opts.checkType)
	if err != nil {
		return err
	}
	text, err := readInput(cmd.InOrStdin(), opts.text, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, root.cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if d := a.timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var res *model.AnalysisResult
	if a.checks != nil {
		res, err = a.engine.AnalyzeAndRecord(ctx, a.checks, text, checkType)
	} else {
		res, err = a.engine.Analyze(ctx, text, checkType)
	}
	if err != nil {
		return err
	}

	if opts.save {
		path, err := workspace.SaveReport(a.dataDir, res)
		if err != nil {
			return err
		}
		a.logger.Info("report saved", zap.String("path", path))
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printSummary(out, res)
	return nil
}

func readInput(stdin io.Reader, text string, args []string) (string, error) {
	if text != "" {
		return text, nil
	}
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
	parsed, err := ingest.ParseFile(args[0])
	if err != nil {
		return "", err
	}
	return parsed.Text, nil
}

func printSummary(w io.Writer, res *model.AnalysisResult) {
	fmt.Fprintf(w, "Run:          %s (%s)\n", res.RunID, res.CheckType)
	fmt.Fprintf(w, "Overall:      %.1f\n", res.OverallScore)
	fmt.Fprintf(w, "AI:           %.1f\n", res.AIScore)
	fmt.Fprintf(w, "Paraphrase:   %.1f\n", res.ParaphraseScore)
	if res.CheckType == model.CheckCodeSimilarity {
		fmt.Fprintf(w, "Structure:    %.1f\n", res.CodeStructureScore)
	}
	fmt.Fprintf(w, "Originality:  %.1f\n", res.OriginalityScore)
	fmt.Fprintf(w, "Words:        %d in %d sentences\n", res.WordCount, res.SentenceCount)

	if len(res.MatchedSources) > 0 {
		fmt.Fprintf(w, "\nMatched sources:\n")
		for _, s := range res.MatchedSources {
			label := s.Title
			if label == "" {
				label = s.URL
			}
			fmt.Fprintf(w, "  %-20s %6.1f%%  %-8s %s\n", s.SourceID, s.MatchPercentage, s.Severity, label)
		}
	}
	if len(res.FlaggedSections) > 0 {
		fmt.Fprintf(w, "\nFlagged sections:\n")
		for _, f := range res.FlaggedSections {
			fmt.Fprintf(w, "  [%d,%d) %-12s %.2f %-8s %s\n", f.StartOffset, f.EndOffset, f.Type, f.Confidence, f.Severity, f.Explanation)
		}
	}
	if res.Degraded {
		fmt.Fprintf(w, "\nDegraded:\n")
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
	}
}
