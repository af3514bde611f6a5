package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/cloudreaper/pkg/confirm"
	"github.com/DrSkyle/cloudreaper/pkg/engine"
)

var (
	reapYes    bool
	reapOutput string
)

var reapCmd = &cobra.Command{
	Use:   "reap <domain>",
	Short: "Destructive run: retire everything judged eligible",
	Long: `Collect evidence, judge candidates, then delete (or schedule deletion of)
every eligible resource in dependency order. Asks once per batch unless
--yes is given.`,
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

		var port confirm.Port = confirm.NewPrompter(nil, nil)
		if reapYes {
			port = confirm.Auto(true)
		}

		eng, err := engine.New(ctx,
			engine.WithConfig(engine.Config{
				Settings:     settingsFromFlags(false),
				StrictMode:   flags.Strict,
				RulesFile:    flags.RulesFile,
				JsonLogs:     flags.JsonLogs,
				Verbose:      flags.Verbose,
				OtelEndpoint: flags.OtelURL,
			}),
			engine.WithConfirmer(port),
		)
		if err != nil {
			return err
		}

		rep, runErr := eng.Run(ctx, p, preset)
		if runErr != nil && !errors.Is(runErr, engine.ErrPartialResult) {
			return runErr
		}

		rep.RenderExecutions(os.Stdout)

		if reapOutput != "" {
			if err := archiveReport(ctx, client, reapOutput, rep); err != nil {
				return err
			}
		}

		switch {
		case rep.HasFailures():
			os.Exit(1)
		case errors.Is(runErr, engine.ErrPartialResult):
			fmt.Fprintln(os.Stderr, "Some evidence sources were unavailable; affected resources were kept.")
			if flags.Strict {
				os.Exit(2)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reapCmd)
	reapCmd.Flags().BoolVarP(&reapYes, "yes", "y", false, "Skip the batch confirmation prompt")
	reapCmd.Flags().StringVarP(&reapOutput, "output", "o", "", "Also write the JSON report to a file or s3://bucket/key")
}
