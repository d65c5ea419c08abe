package commands

import (
	"errors"
	"fmt"

	"github.com/de-tools/revenue-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/revenue-atlas/pkg/services/report"
	"github.com/de-tools/revenue-atlas/pkg/store/snapshot"
	"github.com/spf13/cobra"
)

type ShowCmd struct {
	quarter  string
	runDate  string
	category string
	open     Opener
	reporter *export.Reporter
}

func NewShowCmd(open Opener, reporter *export.Reporter) *cobra.Command {
	sc := &ShowCmd{open: open, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the KPI table of a stored snapshot",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.quarter, "quarter", "", "Fiscal quarter label (e.g., FY26-Q4)")
	cmd.Flags().StringVar(&sc.runDate, "run-date", "", "Actuals snapshot date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sc.category, "category", "", "Category filter the snapshot was collected with")

	_ = cmd.MarkFlagRequired("quarter")
	_ = cmd.MarkFlagRequired("run-date")

	return cmd
}

func (sc *ShowCmd) run(cmd *cobra.Command, _ []string) error {
	runDate, err := parseRunDate(sc.runDate)
	if err != nil {
		return err
	}
	key := snapshot.Key{Quarter: sc.quarter, RunDate: runDate, Category: sc.category}

	return withService(cmd.Context(), sc.open, func(svc report.Service) error {
		r, err := svc.Load(cmd.Context(), key)
		if errors.Is(err, snapshot.ErrNotFound) {
			return fmt.Errorf("no snapshot for %s, run `collect` first: %w", key, err)
		}
		if err != nil {
			return err
		}
		return sc.reporter.Handle(r)
	})
}
