package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/cloudreaper/pkg/permissions"
)

var iamReap bool

var iamCmd = &cobra.Command{
	Use:   "iam [domain...]",
	Short: "Print the least-privilege IAM policy for the given domains",
	Long: `Generate the IAM policy document a scan of the given domains requires.
With --reap the destructive actions are included as a second statement.
No domains means all of them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := permissions.GeneratePolicy(args, iamReap)
		if err != nil {
			return err
		}
		fmt.Println(string(doc))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(iamCmd)
	iamCmd.Flags().BoolVar(&iamReap, "reap", false, "Include destructive actions")
}
