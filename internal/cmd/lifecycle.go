package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wsdb/wsmongo/internal/mongodb"
	"github.com/wsdb/wsmongo/internal/style"
)

var (
	destroyYes   bool
	destroyForce bool
	startRestart bool

	upgradeImage        string
	upgradeImageVersion string
	upgradeVolume       string
	upgradeConfigVolume string
)

func init() {
	destroyCmd.Flags().BoolVarP(&destroyYes, "yes", "y", false, "Do not ask for confirmation")
	destroyCmd.Flags().BoolVarP(&destroyForce, "force", "f", false, "Allow destroying the default database")
	startCmd.Flags().BoolVarP(&startRestart, "restart", "r", false, "Recreate the container")
	upgradeCmd.Flags().StringVarP(&upgradeImage, "image", "i", "", "New image name")
	upgradeCmd.Flags().StringVarP(&upgradeImageVersion, "image-version", "I", "", "New image tag")
	upgradeCmd.Flags().StringVar(&upgradeVolume, "volume", "", "Data volume to mount at /data/db")
	upgradeCmd.Flags().StringVar(&upgradeConfigVolume, "config-volume", "", "Config volume to mount at /data/configdb")

	rootCmd.AddCommand(destroyCmd, useCmd, startCmd, stopCmd, upgradeCmd)
}

var destroyCmd = &cobra.Command{
	Use:     "destroy <name>",
	GroupID: GroupDatabases,
	Short:   "Remove a database, its container and its volumes",
	Long: `Remove a database, its container and the volumes created for it.

Volumes attached with 'wsmongo upgrade --volume' are left in place. The
default database is only destroyed with --force.`,
	Args: cobra.ExactArgs(1),
	RunE: runDestroy,
}

var useCmd = &cobra.Command{
	Use:     "use <name>",
	GroupID: GroupDatabases,
	Short:   "Set the default database",
	Args:    cobra.ExactArgs(1),
	RunE:    runUse,
}

var startCmd = &cobra.Command{
	Use:     "start [name]",
	GroupID: GroupDatabases,
	Short:   "Start a database (the default when no name is given)",
	Long: `Start a database, creating its volumes and container when missing.

With no databases registered yet, start walks through 'create' first.

Examples:
  wsmongo start
  wsmongo start shop --restart`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStart,
}

var stopCmd = &cobra.Command{
	Use:     "stop [name]",
	GroupID: GroupDatabases,
	Short:   "Stop a database and remove its container",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runStop,
}

var upgradeCmd = &cobra.Command{
	Use:     "upgrade [name]",
	GroupID: GroupDatabases,
	Short:   "Change a database's image or volumes",
	Long: `Change a database's image or volumes.

The running container is not touched; apply the change with
'wsmongo start --restart'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpgrade,
}

func runDestroy(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := a.service.Destroy(ctx, args[0], destroyYes, destroyForce); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Destroyed database %s\n", style.SuccessPrefix, style.Bold.Render(args[0]))
	return refreshAdmin(ctx, a, out)
}

func runUse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := a.service.Use(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Default database is now %s\n", style.SuccessPrefix, style.Bold.Render(args[0]))
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	inst, err := a.service.Start(ctx, argAt(args, 0), startRestart)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s is running at %s\n", style.SuccessPrefix, style.Bold.Render(inst.Name), style.Info.Render(inst.ContainerName()))
	return refreshAdmin(ctx, a, out)
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	inst, err := a.service.Stop(ctx, argAt(args, 0))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Stopped %s\n", style.SuccessPrefix, style.Bold.Render(inst.Name))
	return refreshAdmin(ctx, a, out)
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	changed, err := a.service.Upgrade(cmd.Context(), argAt(args, 0), mongodb.UpgradeOptions{
		ImageName:     upgradeImage,
		ImageVersion:  upgradeImageVersion,
		Storage:       upgradeVolume,
		ConfigStorage: upgradeConfigVolume,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !changed {
		fmt.Fprintf(out, "%s Nothing to change\n", style.Dim.Render("○"))
		return nil
	}
	fmt.Fprintf(out, "%s Updated; run %s to apply\n", style.SuccessPrefix, style.Dim.Render("wsmongo start --restart"))
	return nil
}

// refreshAdmin points the admin console at the first running database.
func refreshAdmin(ctx context.Context, a *app, out io.Writer) error {
	target, err := a.service.Admin(ctx)
	if err != nil {
		return fmt.Errorf("refreshing admin console: %w", err)
	}
	if target == nil {
		fmt.Fprintf(out, "  %s admin console stopped (no running database)\n", style.ArrowPrefix)
		return nil
	}
	fmt.Fprintf(out, "  %s admin console for %s at %s\n", style.ArrowPrefix, target.Name, style.Info.Render("http://"+a.settings.Admin.Host))
	return nil
}
