package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(adminCmd)
}

var adminCmd = &cobra.Command{
	Use:     "admin",
	GroupID: GroupDatabases,
	Short:   "Rebuild the mongo-express console",
	Long: `Rebuild the mongo-express console for the first running database.

start, stop and destroy already do this; run it by hand after changing
databases outside wsmongo.`,
	Args: cobra.NoArgs,
	RunE: runAdmin,
}

func runAdmin(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return refreshAdmin(cmd.Context(), a, cmd.OutOrStdout())
}
