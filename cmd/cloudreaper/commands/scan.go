package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/cloudreaper/pkg/engine"
)

var scanOutput string

var scanCmd = &cobra.Command{
	Use:       "scan <domain>",
	Short:     "Dry run: report verdicts without touching anything",
	Long:      `Collect evidence and print per-resource verdicts. No mutating call is ever issued.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: domainNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := newClient(ctx)
		if err != nil {
			return fmt.Errorf("aws session: %w", err)
		}
		identity, err := client.VerifyIdentity(ctx)
		if err != nil {
			return fmt.Errorf("verifying identity: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Account: %s\n", identity)

		p, preset, err := buildProvider(client, args[0])
		if err != nil {
			return err
		}

		eng, err := engine.New(ctx, engine.WithConfig(engine.Config{
			Settings:     settingsFromFlags(true),
			StrictMode:   flags.Strict,
			RulesFile:    flags.RulesFile,
			JsonLogs:     flags.JsonLogs,
			Verbose:      flags.Verbose,
			OtelEndpoint: flags.OtelURL,
		}))
		if err != nil {
			return err
		}

		rep, runErr := eng.Run(ctx, p, preset)
		if runErr != nil && !errors.Is(runErr, engine.ErrPartialResult) {
			return runErr
		}

		if scanOutput != "" {
			if err := archiveReport(ctx, client, scanOutput, rep); err != nil {
				return err
			}
		} else {
			rep.RenderVerdicts(os.Stdout)
		}

		if errors.Is(runErr, engine.ErrPartialResult) {
			fmt.Fprintln(os.Stderr, "Some evidence sources were unavailable; affected resources were kept.")
			if flags.Strict {
				os.Exit(2)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Write the JSON report to a file or s3://bucket/key instead of rendering a table")
}
