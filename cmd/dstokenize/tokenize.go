package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"csv_pii_tokenizer/common"
	"csv_pii_tokenizer/engine"
	"csv_pii_tokenizer/models"
)

type tokenizeOptions struct {
	Input      string
	Output     string
	Column     string
	Format     string
	Mode       string
	KeyBase64  string
	Seed       string
	Workers    int
	Regenerate bool
	Progress   bool
}

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize",
	Short: "Tokenize one column of a CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := tokenizeOptions{
			Input:      viper.GetString(key(cmd, "input")),
			Output:     viper.GetString(key(cmd, "output")),
			Column:     viper.GetString(key(cmd, "column")),
			Format:     viper.GetString(key(cmd, "format")),
			Mode:       viper.GetString(key(cmd, "mode")),
			KeyBase64:  viper.GetString(key(cmd, "key-base64")),
			Seed:       viper.GetString(key(cmd, "seed")),
			Workers:    viper.GetInt(key(cmd, "workers")),
			Regenerate: viper.GetBool(key(cmd, "regenerate-collisions")),
			Progress:   !viper.GetBool(key(cmd, "no-progress")),
		}
		if opts.KeyBase64 == "" {
			opts.KeyBase64 = common.MaybeEnv("TOKEN_KEY_BASE64")
		}
		return runTokenize(opts, os.Stdout, os.Stderr)
	},
}

func init() {
	f := tokenizeCmd.Flags()
	f.StringP("input", "i", "", "input CSV file with a header row")
	f.StringP("output", "o", "", "output file (default stdout)")
	f.StringP("column", "c", "", "column whose values are tokenized")
	f.String("format", "", "output format: csv or json (default from --output extension, else csv)")
	f.String("mode", common.ModeRandom, "token generator: random or keyed")
	f.String("key-base64", "", "base64 key for keyed mode (falls back to TOKEN_KEY_BASE64)")
	f.String("seed", "", "seed for reproducible random tokens")
	f.IntP("workers", "w", 1, "goroutines used for discovery and rewrite")
	f.Bool("regenerate-collisions", false, "retry token generation when a token is already taken")
	f.Bool("no-progress", false, "disable progress bars")
	bindFlags(tokenizeCmd)
}

// outputFormat picks the explicit format, else the output file extension.
func outputFormat(format, output string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	if strings.EqualFold(filepath.Ext(output), ".json") {
		return engine.FormatJSON
	}
	return engine.FormatCSV
}

func generatorConfig(opts tokenizeOptions) (common.GeneratorConfig, error) {
	cfg := common.GeneratorConfig{Mode: opts.Mode, KeyBase64: opts.KeyBase64}
	if opts.Seed != "" {
		seed, err := strconv.ParseUint(opts.Seed, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid --seed %q: %w", opts.Seed, err)
		}
		cfg.Seed, cfg.HasSeed = seed, true
	}
	return cfg, nil
}

func runTokenize(opts tokenizeOptions, stdout, stderr io.Writer) error {
	if opts.Column == "" {
		return fmt.Errorf("--column is required")
	}
	format := outputFormat(opts.Format, opts.Output)
	if format != engine.FormatCSV && format != engine.FormatJSON {
		return fmt.Errorf("%w: %q", engine.ErrUnsupportedFormat, format)
	}
	genCfg, err := generatorConfig(opts)
	if err != nil {
		return err
	}
	gen, err := common.NewTokenGenerator(genCfg)
	if err != nil {
		return err
	}

	in, err := openInput(opts.Input)
	if err != nil {
		return err
	}
	defer in.Close()
	table, err := engine.ReadCSV(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.Input, err)
	}
	log.Infof("loaded %s: %d columns, %d rows", opts.Input, len(table.Columns), table.RowCount())

	var pr *progressReporter
	engineOpts := engine.Options{Workers: opts.Workers, RegenerateOnCollision: opts.Regenerate}
	if opts.Progress {
		pr = newProgressReporter(stderr)
		engineOpts.Progress = pr.report
	}

	started := time.Now()
	res, err := engine.NewDatasetTokenizer(gen, engineOpts).Run(table, opts.Column)
	if pr != nil {
		pr.wait()
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(started)

	cw := &countingWriter{w: stdout}
	if opts.Output == "" {
		if err := engine.Export(cw, res.Table, format); err != nil {
			return err
		}
	} else if err := exportFile(opts.Output, cw, res.Table, format); err != nil {
		return err
	}

	fmt.Fprintf(stderr, "tokenized column %q (%s mode) in %s: %s rows, %s unique values, %s cells substituted, %d collisions, %s written\n",
		res.TargetColumn, res.Mode, elapsed.Round(time.Millisecond),
		humanize.Comma(int64(table.RowCount())), humanize.Comma(int64(res.UniqueValues)),
		humanize.Comma(int64(res.SubstitutedCells)), res.Collisions, humanize.Bytes(uint64(cw.n)))
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// exportFile writes the table to path and reports a failed close, since the
// final flush to disk can fail there.
func exportFile(path string, cw *countingWriter, table *models.Table, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	cw.w = f
	if err := engine.Export(cw, table, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
