package commands

import (
	"fmt"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/revenue-atlas/pkg/services/report"
	"github.com/spf13/cobra"
)

type CollectCmd struct {
	quarter  string
	runDate  string
	category string
	force    bool
	quiet    bool
	open     Opener
	reporter *export.Reporter
}

func NewCollectCmd(open Opener, reporter *export.Reporter) *cobra.Command {
	cc := &CollectCmd{open: open, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect and store the revenue report of a fiscal quarter",
		RunE:  cc.run,
	}

	cmd.Flags().StringVar(&cc.quarter, "quarter", "", "Fiscal quarter label (e.g., FY26-Q4)")
	cmd.Flags().StringVar(&cc.runDate, "run-date", "", "Actuals snapshot date (YYYY-MM-DD, default latest)")
	cmd.Flags().StringVar(&cc.category, "category", "", "Restrict the report to one category")
	cmd.Flags().BoolVar(&cc.force, "force", false, "Replace an existing snapshot")
	cmd.Flags().BoolVar(&cc.quiet, "quiet", false, "Do not print the KPI table")

	_ = cmd.MarkFlagRequired("quarter")

	return cmd
}

func (cc *CollectCmd) run(cmd *cobra.Command, _ []string) error {
	runDate, err := parseRunDate(cc.runDate)
	if err != nil {
		return err
	}

	return withService(cmd.Context(), cc.open, func(svc report.Service) error {
		r, err := svc.Generate(cmd.Context(), report.GenerateRequest{
			Quarter:  cc.quarter,
			RunDate:  runDate,
			Category: cc.category,
			Force:    cc.force,
		})
		if err != nil {
			return fmt.Errorf("failed to collect %s: %w", cc.quarter, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s for run date %s ready (run %s)\n",
			r.Metadata.Quarter, domain.FormatDate(r.Metadata.RunDate), r.Metadata.RunID)
		if cc.quiet {
			return nil
		}
		return cc.reporter.Handle(r)
	})
}
