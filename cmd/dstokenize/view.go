package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"csv_pii_tokenizer/engine"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print one page of a CSV file with optional filters and sorting",
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilters(viper.GetStringSlice(key(cmd, "filter")))
		if err != nil {
			return err
		}
		opts := engine.ViewOptions{
			Page:       viper.GetInt(key(cmd, "page")),
			PerPage:    viper.GetInt(key(cmd, "per-page")),
			Filters:    filters,
			SortColumn: viper.GetString(key(cmd, "sort")),
			Desc:       viper.GetBool(key(cmd, "desc")),
		}
		return runView(viper.GetString(key(cmd, "input")), opts, os.Stdout)
	},
}

func init() {
	f := viewCmd.Flags()
	f.StringP("input", "i", "", "input CSV file with a header row")
	f.IntP("page", "p", 1, "page number, starting at 1")
	f.Int("per-page", engine.DefaultPerPage, "rows per page (10, 20, 50 or 100)")
	f.String("sort", "", "column to sort by")
	f.Bool("desc", false, "sort descending")
	f.StringArray("filter", nil, "column=substring filter, case-insensitive; repeatable")
	bindFlags(viewCmd)
}

// parseFilters turns "col=value" pairs into a filter map.
func parseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		col, val, ok := strings.Cut(p, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid --filter %q, expected column=value", p)
		}
		out[col] = val
	}
	return out, nil
}

func runView(input string, opts engine.ViewOptions, out io.Writer) error {
	in, err := openInput(input)
	if err != nil {
		return err
	}
	defer in.Close()
	table, err := engine.ReadCSV(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	page, err := engine.View(table, opts)
	if err != nil {
		return err
	}

	headerfmt := color.New(color.FgGreen, color.Underline).SprintFunc()
	uiTable := uitable.New()
	uiTable.MaxColWidth = 40
	header := []interface{}{headerfmt("#")}
	for _, c := range page.Columns {
		header = append(header, headerfmt(c))
	}
	uiTable.AddRow(header...)
	for _, r := range page.Rows {
		cells := []interface{}{r.Index + 1}
		for _, c := range page.Columns {
			cells = append(cells, r.Values[c])
		}
		uiTable.AddRow(cells...)
	}
	fmt.Fprintln(out, uiTable)
	fmt.Fprintf(out, "\npage %d of %d (%d matching rows)\n", page.Page, max(page.TotalPages, 1), page.TotalRows)
	return nil
}
