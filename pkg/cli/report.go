package cli

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/unified-runner/pkg/report"
)

func newReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Rebuild the summary and HTML report from results.json",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "from",
				Usage:    "Output directory of a previous run",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "embed-screenshots",
				Usage: "Embed screenshots in report.html",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "allure",
				Usage: "Also write Allure results",
			},
		},
		Action: rebuildReport,
	}
}

func rebuildReport(c *cli.Context) error {
	dir := c.String("from")
	run, err := report.ReadResults(dir)
	if err != nil {
		return cli.Exit(err, ExitError)
	}

	agg := report.NewAggregator()
	for _, o := range run.Outcomes {
		agg.Record(o)
	}
	w := c.App.Writer
	fmt.Fprint(w, agg.Summary(report.Meta{
		Environment: run.Environment,
		Date:        run.StartTime.Add(run.Duration),
		Duration:    run.Duration,
	}))
	fmt.Fprintln(w, agg.Table("Test Results"))

	htmlPath := filepath.Join(dir, report.HTMLFile)
	if err := report.GenerateHTML(run, report.HTMLConfig{OutputPath: htmlPath, EmbedAssets: c.Bool("embed-screenshots")}); err != nil {
		return cli.Exit(err, ExitError)
	}
	if c.Bool("allure") {
		if err := report.GenerateAllure(dir, run); err != nil {
			return cli.Exit(err, ExitError)
		}
	}
	fmt.Fprintf(w, "Report written to %s\n", htmlPath)
	return nil
}
