package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"precon-scraper/internal/dck"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <file.dck>...",
	Short: "Prints the cards of one or more .dck files as a table.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, path := range args {
			file, err := os.Open(path)
			if err != nil {
				Fatal("failed to open deck", err)
			}
			cards, err := dck.Parse(file)
			file.Close()
			if err != nil {
				Fatal(fmt.Sprintf("failed to parse %s", path), err)
			}

			t := newTable(cmd)
			t.SetTitle(filepath.Base(path))
			t.AppendHeader(table.Row{"Qty", "Set", "Id", "Name", "Sideboard"})

			total := 0
			sideboard := 0
			for _, c := range cards {
				sb := ""
				if c.IsSideboard {
					sb = "yes"
					sideboard += c.Quantity
				}
				total += c.Quantity
				t.AppendRow(table.Row{c.Quantity, c.SetCode, c.SetID, c.Name, sb})
			}
			t.AppendFooter(table.Row{total, "", "", "", sideboard})
			t.Render()
		}
	},
}
