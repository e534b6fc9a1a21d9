package commands

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kostadindraganov/amazon-extractor/cmd/harvester/ui"
	"github.com/kostadindraganov/amazon-extractor/internal/harvest"
)

var inspectSheetURL string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load a sheet and show what would be extracted, without extracting",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectSheetURL, "sheet", "s", "", "Google Sheets share URL (required)")
	inspectCmd.MarkFlagRequired("sheet")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ui.Init(noColor)

	_, _, session, err := setup(nil)
	if err != nil {
		return err
	}

	spin := ui.NewSpinner("Fetching spreadsheet...")
	spin.Start()
	state, err := session.LoadSheet(context.Background(), inspectSheetURL)
	spin.Stop()

	var noLinks *harvest.NoLinksError
	if err != nil && !errors.As(err, &noLinks) {
		return err
	}

	ui.Section("Columns")
	ui.Table(
		[]string{"Header", "Role"},
		columnRows(state),
	)
	ui.Success("Link column chosen by: %s", state.LinkRationale)

	ui.Section("Products")
	if len(state.Products) == 0 {
		ui.Warning("No valid Amazon links found in column %q", state.LinkColumn)
		return nil
	}

	rows := make([][]string, 0, len(state.Products))
	for i, p := range state.Products {
		rows = append(rows, []string{strconv.Itoa(i), orDash(p.Group), p.URL})
	}
	ui.Table([]string{"#", "Group", "Link"}, rows)
	ui.Success("%d of %d rows carry recognizable product links", len(state.Products), state.RowCount)

	return nil
}

func columnRows(state *harvest.State) [][]string {
	rows := make([][]string, 0, len(state.Headers))
	for _, h := range state.Headers {
		role := ""
		switch h {
		case state.LinkColumn:
			role = "link"
		case state.GroupColumn:
			role = "group"
		}
		rows = append(rows, []string{h, orDash(role)})
	}
	return rows
}
