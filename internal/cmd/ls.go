package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wsdb/wsmongo/internal/mongodb"
	"github.com/wsdb/wsmongo/internal/style"
)

var lsOutput string

func init() {
	lsCmd.Flags().StringVarP(&lsOutput, "output", "o", "table", "Output format: table, json or yaml")
	rootCmd.AddCommand(lsCmd)
}

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	GroupID: GroupDatabases,
	Short:   "List databases",
	Args:    cobra.NoArgs,
	RunE:    runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return writeRows(cmd.OutOrStdout(), a.service.List(), lsOutput)
}

func writeRows(w io.Writer, rows []mongodb.Row, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()

	case "table", "":
		if len(rows) == 0 {
			fmt.Fprintf(w, "No databases. Create one with %s\n", style.Dim.Render("wsmongo create"))
			return nil
		}
		fmt.Fprintln(w, renderTable(rows))
		return nil

	default:
		return fmt.Errorf("invalid --output %q: must be one of table, json, yaml", format)
	}
}

func renderTable(rows []mongodb.Row) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "USERNAME", "HOST", "IMAGE", "STORAGES").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return style.Header
			}
			return style.Cell
		})
	for _, r := range rows {
		t.Row(r.DisplayName(), r.Username, r.Host, r.Image, r.ConfigStorage+"\n"+r.Storage)
	}
	return t.Render()
}
