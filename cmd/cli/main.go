package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/revenue-atlas/pkg/runtime/app"
	"github.com/de-tools/revenue-atlas/pkg/runtime/terminal"
	"github.com/de-tools/revenue-atlas/pkg/services/config"
	"github.com/de-tools/revenue-atlas/pkg/services/report"
)

const exitConflict = 2

func main() {
	cli := terminal.NewCLI(terminal.Options{
		Open:   open,
		Output: os.Stdout,
	})

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, report.ErrCollectionInProgress) {
			os.Exit(exitConflict)
		}
		os.Exit(1)
	}
}

func open(ctx context.Context, configPath string) (report.Service, io.Closer, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, settings, app.Options{})
	if err != nil {
		return nil, nil, err
	}
	return a.Reports, a, nil
}
