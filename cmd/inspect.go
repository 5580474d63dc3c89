package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/adalundhe/termbase/core/glossary"
)

var inspectDictPath string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Render a glossary dictionary as a table",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDictPath, "dict", "", "glossary dictionary JSON file (required)")
	inspectCmd.MarkFlagRequired("dict")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	dict, err := readDictionary(inspectDictPath)
	if err != nil {
		return err
	}

	fmt.Println(renderDictionary(dict, isatty.IsTerminal(os.Stdout.Fd())))
	return nil
}

// renderDictionary builds the table view of a dictionary. Styled output is
// reserved for terminals; pipes get plain ASCII.
func renderDictionary(dict *glossary.Dictionary, styled bool) string {
	tw := table.NewWriter()
	if styled {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	tw.AppendHeader(table.Row{"ID", "Keys", "Value"})
	for _, e := range dict.Entries {
		tw.AppendRow(table.Row{
			strconv.Itoa(e.ID),
			strings.Join(e.Keys, ", "),
			e.Value,
		})
	}
	tw.AppendFooter(table.Row{"", "entries", strconv.Itoa(dict.Len())})

	return tw.Render()
}
