package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var diagnoseOut string

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <file.csv>",
	Short: "Diagnose column-level data-quality issues with the diagnosis model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(args[0])
		if err != nil {
			return err
		}
		defer sess.Close()

		fmt.Printf("Loaded %d rows, %d columns from %s\n\n",
			len(sess.raw.Rows), len(sess.raw.Columns), args[0])

		result := sess.sanitizer.Analyze(cmd.Context())
		renderLogs(result.Logs)
		fmt.Println()

		if !result.Success {
			return fmt.Errorf("analysis failed: %s", result.Err)
		}

		renderDiagnosis(result.Diagnosis)

		if diagnoseOut != "" {
			data, err := json.MarshalIndent(result.Diagnosis, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode diagnosis: %w", err)
			}
			if err := os.WriteFile(diagnoseOut, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", diagnoseOut, err)
			}
			fmt.Printf("\nDiagnosis written to %s\n", diagnoseOut)
		}
		return nil
	},
}

func init() {
	diagnoseCmd.Flags().StringVarP(&diagnoseOut, "out", "o", "", "write the diagnosis as JSON to this file")
}
