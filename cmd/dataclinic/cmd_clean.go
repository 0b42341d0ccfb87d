package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dataclinic/internal/store"
	"dataclinic/internal/types"
)

var (
	cleanDiagnosisPath string
	cleanOut           string
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file.csv>",
	Short: "Generate and execute a cleaning program from a saved diagnosis",
	Long: `Clean runs the synthesis and execute/repair phases against a diagnosis
produced earlier by 'dataclinic diagnose --out'. Use 'dataclinic pipeline'
to run both phases in one invocation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(cleanDiagnosisPath)
		if err != nil {
			return fmt.Errorf("failed to read diagnosis (run 'dataclinic diagnose' first): %w", err)
		}
		var diagnosis types.Diagnosis
		if err := json.Unmarshal(data, &diagnosis); err != nil {
			return fmt.Errorf("invalid diagnosis file %s: %w", cleanDiagnosisPath, err)
		}

		sess, err := newSession(args[0])
		if err != nil {
			return err
		}
		defer sess.Close()

		result := sess.sanitizer.CleanWith(cmd.Context(), &diagnosis)
		return reportCleaning(sess, result)
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <file.csv>",
	Short: "Run the full pipeline: diagnose, synthesize, execute, repair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(args[0])
		if err != nil {
			return err
		}
		defer sess.Close()

		result := sess.sanitizer.RunPipeline(cmd.Context())
		return reportCleaning(sess, result)
	},
}

// reportCleaning renders a cleaning result, writes the output CSV on
// success, and prints the attempted SQL even on failure.
func reportCleaning(sess *session, result *types.CleaningResult) error {
	renderLogs(result.Logs)
	fmt.Println()

	if result.SQL != "" {
		fmt.Println(headerStyle.Render("Executed SQL"))
		fmt.Println(result.SQL)
		fmt.Println()
	}
	if result.Rationale != "" && verbose {
		fmt.Println(headerStyle.Render("Model rationale"))
		fmt.Println(result.Rationale)
		fmt.Println()
	}

	if !result.Success {
		return fmt.Errorf("cleaning failed: %s", result.Err)
	}

	if result.Retries > 0 {
		fmt.Printf("Succeeded after %d automatic corrections.\n", result.Retries)
	}
	renderSummary(sess.raw, result.Clean)
	fmt.Println()
	renderPreview(result.Clean, 10)

	if cleanOut != "" {
		f, err := os.Create(cleanOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", cleanOut, err)
		}
		defer f.Close()
		if err := store.WriteCSV(f, result.Clean); err != nil {
			return fmt.Errorf("failed to write %s: %w", cleanOut, err)
		}
		fmt.Printf("\nClean data written to %s\n", cleanOut)
	}
	return nil
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanDiagnosisPath, "diagnosis", "d", "diagnosis.json", "diagnosis JSON produced by 'diagnose --out'")
	cleanCmd.Flags().StringVarP(&cleanOut, "out", "o", "", "write the cleaned data as CSV to this file")
	pipelineCmd.Flags().StringVarP(&cleanOut, "out", "o", "", "write the cleaned data as CSV to this file")
}
