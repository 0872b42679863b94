package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/glesirok/apicmd/pkg/config"
	"github.com/glesirok/apicmd/pkg/processor"
)

// Version 通过 -ldflags 注入
var Version = "dev"

var (
	cfgFile  string
	specFile string
	prefix   string
	output   string
	verbose  bool
	dryRun   bool
	backup   bool
)

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apicmd",
		Short: "Derive a command tree from an OpenAPI description",
		Long: `apicmd infers resources, entities and verbs from the paths and operation ids
of an OpenAPI document and groups them into a command hierarchy.

Examples:
  apicmd tree -s openapi.yaml                 Print the hierarchy as YAML
  apicmd tree -s openapi.yaml groups.members  Print one subtree
  apicmd verbs -s openapi.yaml                Print inferred verbs and entities
  apicmd api -s openapi.yaml group list       Resolve a command to its operation`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&specFile, "spec", "s", "", "OpenAPI document (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "", "Path prefix of the API root (default "+config.DefaultPrefix+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newTreeCmd(), newBatchCmd(), newVerbsCmd(), newAPICmd(), newConfigCmd())
	return rootCmd
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "apicmd"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// loadConfig 加载配置，命令行参数优先于配置文件和环境变量
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	if f := cmd.Flags().Lookup("prefix"); f != nil {
		if err := v.BindPFlag("prefix", f); err != nil {
			return nil, err
		}
	}
	return config.LoadWith(v, cfgFile)
}

// newProcessor 创建处理器，输出写到命令的 stdout
func newProcessor(cmd *cobra.Command) (*processor.Processor, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	proc, err := processor.NewProcessor(cfg, newLogger())
	if err != nil {
		return nil, err
	}
	proc.SetOutput(cmd.OutOrStdout())
	return proc, nil
}
