package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	awsprovider "github.com/DrSkyle/cloudreaper/pkg/provider/aws"
)

var orgsOutput string

var orgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "Export the AWS Organizations tree",
	Long:  `Walk the organization from its roots and flatten OUs and accounts into one list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := newClient(ctx)
		if err != nil {
			return fmt.Errorf("aws session: %w", err)
		}

		nodes, err := awsprovider.NewOrgExporter(client.Config).Export(ctx)
		if err != nil {
			return err
		}

		if orgsOutput != "" {
			f, err := os.Create(orgsOutput)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer f.Close()
			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			if err := enc.Encode(nodes); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			fmt.Printf("Exported %d nodes to %s\n", len(nodes), orgsOutput)
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Type", "Path", "ID", "Status"})
		for _, n := range nodes {
			t.AppendRow(table.Row{n.Type, n.Path, n.ID, n.Status})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(orgsCmd)
	orgsCmd.Flags().StringVarP(&orgsOutput, "output", "o", "", "Write JSON to a file instead of printing a table")
}
