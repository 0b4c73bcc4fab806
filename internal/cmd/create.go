package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsdb/wsmongo/internal/mongodb"
	"github.com/wsdb/wsmongo/internal/style"
)

var (
	createUser            string
	createPassword        string
	createPasswordConfirm string
	createImage           string
	createImageVersion    string
)

func init() {
	createCmd.Flags().StringVarP(&createUser, "user", "u", "", "Root username")
	createCmd.Flags().StringVarP(&createPassword, "password", "p", "", "Root password")
	createCmd.Flags().StringVar(&createPasswordConfirm, "password-confirm", "", "Repeat the root password")
	createCmd.Flags().StringVarP(&createImage, "image", "i", "", "Image name (default mongo)")
	createCmd.Flags().StringVarP(&createImageVersion, "image-version", "I", "", "Image tag (default latest)")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:     "create [name]",
	GroupID: GroupDatabases,
	Short:   "Register a new database",
	Long: `Register a new MongoDB database.

Missing name, username and password are asked for interactively. The first
database created becomes the default. Nothing is started until 'wsmongo start'.

Examples:
  wsmongo create
  wsmongo create shop -u root -p secret
  wsmongo create legacy -u root -p secret --image-version 4.4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	inst, err := a.service.Create(cmd.Context(), mongodb.CreateOptions{
		Name:            argAt(args, 0),
		Username:        createUser,
		Password:        createPassword,
		PasswordConfirm: createPasswordConfirm,
		ImageName:       createImage,
		ImageVersion:    createImageVersion,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Created database %s\n", style.SuccessPrefix, style.Bold.Render(inst.Name))
	if a.service.Registry().IsDefault(inst.Name) {
		fmt.Fprintf(out, "  %s set as default\n", style.ArrowPrefix)
	}
	fmt.Fprintf(out, "  %s start it with %s\n", style.ArrowPrefix, style.Dim.Render("wsmongo start "+inst.Name))
	return nil
}
