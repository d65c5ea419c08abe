package commands

import (
	"fmt"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/services/report"
	"github.com/spf13/cobra"
)

func NewRunDatesCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "run-dates",
		Short: "List the actuals snapshot dates, latest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), open, func(svc report.Service) error {
				dates, err := svc.RunDates(cmd.Context())
				if err != nil {
					return err
				}
				if len(dates) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No run dates found")
					return nil
				}
				for _, d := range dates {
					fmt.Fprintln(cmd.OutOrStdout(), domain.FormatDate(d))
				}
				return nil
			})
		},
	}
}
