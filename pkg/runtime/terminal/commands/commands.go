package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/services/report"
	"github.com/rs/zerolog"
)

// Opener provides the report service for one command run. The closer releases
// the warehouse connection.
type Opener func(ctx context.Context) (report.Service, io.Closer, error)

func withService(ctx context.Context, open Opener, fn func(report.Service) error) error {
	svc, closer, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close warehouse connection")
		}
	}()
	return fn(svc)
}

func parseRunDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := domain.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid run date %q. Expected format: YYYY-MM-DD", value)
	}
	return t, nil
}
