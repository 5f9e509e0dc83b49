package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"csv_pii_tokenizer/engine"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Suggest columns that look like personal identifiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetect(viper.GetString(key(cmd, "input")), viper.GetFloat64(key(cmd, "min-ratio")), os.Stdout)
	},
}

func init() {
	f := detectCmd.Flags()
	f.StringP("input", "i", "", "input CSV file with a header row")
	f.Float64("min-ratio", engine.DefaultDetectRatio, "share of non-empty cells that must match")
	bindFlags(detectCmd)
}

func runDetect(input string, minRatio float64, out io.Writer) error {
	in, err := openInput(input)
	if err != nil {
		return err
	}
	defer in.Close()
	table, err := engine.ReadCSV(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	suggestions := engine.DetectColumns(table, minRatio)
	if len(suggestions) == 0 {
		fmt.Fprintln(out, "no sensitive columns detected")
		return nil
	}

	headerfmt := color.New(color.FgGreen, color.Underline).SprintFunc()
	uiTable := uitable.New()
	uiTable.AddRow(headerfmt("COLUMN"), headerfmt("TYPE"), headerfmt("MATCHED"), headerfmt("NON-EMPTY"), headerfmt("RATIO"))
	for _, s := range suggestions {
		uiTable.AddRow(s.Column, s.Type, s.Matched, s.NonEmpty, fmt.Sprintf("%.2f", s.Ratio))
	}
	fmt.Fprintln(out, uiTable)
	return nil
}
