package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/glesirok/apicmd/pkg/render"
)

var errSpecRequired = errors.New("an OpenAPI document is required (--spec)")

func requireSpec() error {
	if specFile == "" {
		return errSpecRequired
	}
	return nil
}

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [selector]",
		Short: "Print the command hierarchy as YAML",
		Long: `Print the command hierarchy as YAML.

The optional selector is a dot separated list of keys or entity names,
for example "groups.members".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTree,
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (optional, defaults to stdout)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry-run mode: preview output without writing files")
	cmd.Flags().BoolVar(&backup, "backup", false, "Backup an existing output file with .bak extension")
	return cmd
}

func runTree(cmd *cobra.Command, args []string) error {
	if err := requireSpec(); err != nil {
		return err
	}

	proc, err := newProcessor(cmd)
	if err != nil {
		return fmt.Errorf("create processor: %w", err)
	}

	if len(args) == 0 {
		return proc.ProcessFile(cmd.Context(), specFile, output, dryRun, backup)
	}

	h, err := proc.Build(cmd.Context(), specFile)
	if err != nil {
		return err
	}
	entry, err := h.Lookup(args[0])
	if err != nil {
		return fmt.Errorf("lookup %s: %w", args[0], err)
	}
	return entry.Encode(cmd.OutOrStdout())
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Build a hierarchy for every OpenAPI document in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, err := newProcessor(cmd)
			if err != nil {
				return fmt.Errorf("create processor: %w", err)
			}

			if err := proc.ProcessDirectory(cmd.Context(), args[0], output, dryRun, backup); err != nil {
				return err
			}

			if !dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), "✓ All files processed successfully")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (optional, defaults to next to each document)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry-run mode: preview output without writing files")
	cmd.Flags().BoolVar(&backup, "backup", false, "Backup existing output files with .bak extension")
	return cmd
}

func newVerbsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verbs",
		Short: "Print the inferred verbs and entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSpec(); err != nil {
				return err
			}

			proc, err := newProcessor(cmd)
			if err != nil {
				return fmt.Errorf("create processor: %w", err)
			}

			res, err := proc.Vocabulary(cmd.Context(), specFile)
			if err != nil {
				return err
			}
			return encodeYAML(cmd, res)
		},
	}
}

func newAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api [entity...] [verb]",
		Short: "Resolve a derived command to its operation",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSpec(); err != nil {
				return err
			}

			proc, err := newProcessor(cmd)
			if err != nil {
				return fmt.Errorf("create processor: %w", err)
			}

			h, err := proc.Build(cmd.Context(), specFile)
			if err != nil {
				return err
			}

			api, err := render.Command("api", h, func(c *cobra.Command, operationID string, _ []string) error {
				fmt.Fprintf(c.OutOrStdout(), "operation: %s\n", operationID)
				return nil
			})
			if err != nil {
				return fmt.Errorf("render commands: %w", err)
			}
			api.SetArgs(args)
			api.SetOut(cmd.OutOrStdout())
			api.SetErr(cmd.ErrOrStderr())
			return api.ExecuteContext(cmd.Context())
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return encodeYAML(cmd, cfg)
		},
	}
}

func encodeYAML(cmd *cobra.Command, v interface{}) error {
	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return encoder.Close()
}
