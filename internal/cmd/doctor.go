package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsdb/wsmongo/internal/doctor"
)

var doctorFix bool

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Attempt to fix problems automatically")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	GroupID: GroupDiag,
	Short:   "Check docker, the registry and the backup directory",
	Args:    cobra.NoArgs,
	RunE:    runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	d := doctor.NewDoctor()
	d.RegisterAll(
		doctor.NewDockerCheck(),
		doctor.NewRegistryCheck(),
		doctor.NewBackupDirCheck(),
	)

	ctx := &doctor.CheckContext{Settings: settings, Verbose: verboseFlag}
	var report *doctor.Report
	if doctorFix {
		report = d.Fix(ctx)
	} else {
		report = d.Run(ctx)
	}
	report.Print(cmd.OutOrStdout(), verboseFlag)

	if report.HasErrors() {
		return fmt.Errorf("%d check(s) failed", report.Summary.Errors)
	}
	return nil
}
