package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kostadindraganov/amazon-extractor/cmd/harvester/ui"
	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
	"github.com/kostadindraganov/amazon-extractor/internal/extract"
	"github.com/kostadindraganov/amazon-extractor/internal/harvest"
)

var (
	runSheetURL    string
	runLinkColumn  string
	runShowSource  bool
	runRetryFailed bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load a sheet and extract product imagery",
	Long: `Load the given Google Sheets share URL, map its rows to products, and run
the extraction pipeline. Results print as a gallery grouped by palette.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runSheetURL, "sheet", "s", "", "Google Sheets share URL (required)")
	runCmd.Flags().StringVar(&runLinkColumn, "link-column", "", "override the detected link column")
	runCmd.Flags().BoolVar(&runShowSource, "sources", false, "print citation sources per product")
	runCmd.Flags().BoolVar(&runRetryFailed, "retry-failed", false, "re-queue previously failed products")
	runCmd.MarkFlagRequired("sheet")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ui.Init(noColor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var bar *ui.ProgressBar
	_, _, session, err := setup(func(p catalog.Product) {
		if bar != nil && p.Status.Terminal() {
			bar.Add(1)
		}
	})
	if err != nil {
		return err
	}

	ui.Section("Loading sheet")
	spin := ui.NewSpinner("Fetching spreadsheet...")
	spin.Start()
	state, err := session.LoadSheet(ctx, runSheetURL)
	spin.Stop()

	var noLinks *harvest.NoLinksError
	switch {
	case errors.As(err, &noLinks) && runLinkColumn == "":
		return fmt.Errorf("%v; pass --link-column to pick one of: %s",
			noLinks, strings.Join(state.Headers, ", "))
	case err != nil && !errors.As(err, &noLinks):
		return err
	}

	if runLinkColumn != "" {
		state, err = session.SetLinkColumn(runLinkColumn)
		if err != nil {
			return err
		}
	}

	ui.Success("Loaded %d rows, %d products detected", state.RowCount, len(state.Products))
	ui.Table(
		[]string{"Setting", "Value"},
		[][]string{
			{"Link column", state.LinkColumn},
			{"Rationale", string(state.LinkRationale)},
			{"Group column", orDash(state.GroupColumn)},
		},
	)

	if len(state.Products) == 0 {
		ui.Warning("Nothing to extract")
		return nil
	}

	ui.Section("Extracting")
	bar = ui.NewProgressBar(int64(len(state.Products)), "Extracting")
	report, err := session.Extract(ctx, extract.RunOptions{IncludeFailed: runRetryFailed})
	bar.Finish()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if report.Cancelled {
		ui.Warning("Extraction stopped; %d products still pending",
			session.Counts()[catalog.StatusPending])
	}

	printGallery(session)

	ui.Section("Summary")
	ui.Success("%d completed, %d failed of %d (run %s, %s)",
		report.Completed, report.Failed, report.Total, report.RunID, report.Duration.Round(10*time.Millisecond))

	if report.Failed > 0 {
		return fmt.Errorf("%d products failed extraction", report.Failed)
	}
	return nil
}

func printGallery(session *harvest.Session) {
	for _, group := range session.Grouped() {
		ui.Group(group.Name, len(group.Products))

		rows := make([][]string, 0, len(group.Products))
		for _, p := range group.Products {
			title := p.Title
			if p.Status == catalog.StatusFailed {
				title = "FAILED: " + p.Error
			}
			rows = append(rows, []string{
				string(p.Status),
				title,
				strconv.Itoa(len(p.Images)),
				p.URL,
			})
		}
		ui.Table([]string{"Status", "Title", "Images", "Link"}, rows)

		for _, p := range group.Products {
			for _, img := range p.Images {
				fmt.Println("  " + img)
			}
			if runShowSource {
				for _, src := range p.Sources {
					fmt.Printf("  source: %s <%s>\n", src.Title, src.URI)
				}
			}
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
