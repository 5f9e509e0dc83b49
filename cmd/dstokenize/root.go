package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"csv_pii_tokenizer/common"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dstokenize",
	Short: "Replace sensitive values in CSV datasets with format-preserving tokens",
	Long: `dstokenize tokenizes one column of a CSV dataset: every distinct value gets one
random token of the same shape, and the same token replaces that value wherever it
appears in other columns.`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		common.InitLogging(viper.GetString("log-level"))
		return nil
	},
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "warning", "log level (debug, info, warning, error)")
	cobra.CheckErr(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))

	rootCmd.AddCommand(tokenizeCmd, detectCmd, viewCmd)
}

// initConfig reads the config file and DSTOKENIZE_* environment variables.
func initConfig() error {
	viper.SetEnvPrefix("DSTOKENIZE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	log.Debugf("using config file %s", viper.ConfigFileUsed())
	return nil
}

// bindFlags exposes every local flag of cmd as the viper key "<cmd>.<flag>",
// so DSTOKENIZE_TOKENIZE_COLUMN or a "tokenize: {column: ...}" config entry
// can stand in for --column.
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		cobra.CheckErr(viper.BindPFlag(cmd.Name()+"."+f.Name, f))
	})
}

func key(cmd *cobra.Command, flag string) string {
	return cmd.Name() + "." + flag
}

func openInput(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("--input is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}
