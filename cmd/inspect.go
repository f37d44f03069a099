package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tensorloom-cli/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	inspInput  inputFlags
	inspFormat string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the tensor record (shape, fields, stats, matrix) built from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := analysis.ParseFormat(inspFormat)
		if err != nil {
			return err
		}
		if format == analysis.FormatMarkdown {
			return fmt.Errorf("inspect supports json or yaml, not %s", format)
		}
		rec, err := loadRecord(args[0], &inspInput)
		if err != nil {
			return err
		}
		b, err := analysis.Encode(rec, format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspInput.register(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspFormat, "format", "f", "json", "output format: json|yaml")
}
