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

var stacksJSON bool

var stacksCmd = &cobra.Command{
	Use:   "stacks <physical-resource-id>",
	Short: "Find the CloudFormation stack that owns a resource",
	Long: `Search every stack in the region for a physical resource id. A resource
owned by a stack should be retired through the stack, not directly.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := newClient(ctx)
		if err != nil {
			return fmt.Errorf("aws session: %w", err)
		}

		finder := awsprovider.NewStackFinder(client.Config)
		hits, err := finder.Find(ctx, args[0])
		if err != nil {
			return err
		}

		if stacksJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(hits)
		}

		if len(hits) == 0 {
			fmt.Printf("No stack owns %s. Safe to manage directly.\n", args[0])
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Stack", "Logical ID", "Type", "Status"})
		for _, h := range hits {
			t.AppendRow(table.Row{h.StackName, h.LogicalResourceID, h.ResourceType, h.ResourceStatus})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stacksCmd)
	stacksCmd.Flags().BoolVar(&stacksJSON, "json", false, "Emit JSON instead of a table")
}
