package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wsdb/wsmongo/internal/style"
)

var deleteBackupYes bool

func init() {
	deleteBackupCmd.Flags().BoolVarP(&deleteBackupYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(backupCmd, restoreCmd, deleteBackupCmd, backupsCmd)
}

var backupCmd = &cobra.Command{
	Use:     "backup [name] [database]",
	GroupID: GroupBackups,
	Short:   "Dump a database to a gzipped archive",
	Long: `Dump one logical database of a running instance with mongodump.

Backups are written to <backup dir>/<name>/<database>/<timestamp>.gz. A
missing database is chosen from the instance's databases.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runBackup,
}

var restoreCmd = &cobra.Command{
	Use:     "restore [name] [database] [filename]",
	GroupID: GroupBackups,
	Short:   "Load a backup into a database, replacing its contents",
	Args:    cobra.MaximumNArgs(3),
	RunE:    runRestore,
}

var deleteBackupCmd = &cobra.Command{
	Use:     "delete-backup [name] [database] [filename]",
	GroupID: GroupBackups,
	Short:   "Delete a backup file",
	Args:    cobra.MaximumNArgs(3),
	RunE:    runDeleteBackup,
}

var backupsCmd = &cobra.Command{
	Use:     "backups [name]",
	GroupID: GroupBackups,
	Short:   "List backup files",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runBackups,
}

func runBackup(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	path, err := a.service.Backup(cmd.Context(), argAt(args, 0), argAt(args, 1))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Backup written to %s\n", style.SuccessPrefix, style.Info.Render(path))
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	path, err := a.service.Restore(cmd.Context(), argAt(args, 0), argAt(args, 1), argAt(args, 2))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Restored %s\n", style.SuccessPrefix, style.Info.Render(path))
	return nil
}

func runDeleteBackup(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	path, err := a.service.DeleteBackup(cmd.Context(), argAt(args, 0), argAt(args, 1), argAt(args, 2), deleteBackupYes)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", style.SuccessPrefix, style.Info.Render(path))
	return nil
}

func runBackups(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	backups, err := a.service.ListBackups(cmd.Context(), argAt(args, 0))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(backups) == 0 {
		fmt.Fprintln(out, "No backups.")
		return nil
	}
	databases := make([]string, 0, len(backups))
	for db := range backups {
		databases = append(databases, db)
	}
	sort.Strings(databases)
	for _, db := range databases {
		fmt.Fprintln(out, style.Bold.Render(db))
		for _, file := range backups[db] {
			fmt.Fprintf(out, "  %s\n", file)
		}
	}
	return nil
}
