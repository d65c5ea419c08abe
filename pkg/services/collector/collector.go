package collector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/models/store"
	"github.com/de-tools/revenue-atlas/pkg/services/analysis"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Resolver interface {
	Resolve(ctx context.Context, quarter string) (domain.FiscalDates, error)
}

// Source enumerates the entities of each level.
type Source interface {
	Distinct(ctx context.Context, field domain.Field, q store.AmountQuery) ([]string, error)
	SumBy(ctx context.Context, q store.AmountQuery, groups ...store.Grouping) ([]store.GroupedAmount, error)
}

type Library interface {
	Get(kind domain.Kind) (analysis.Analysis, bool)
}

type Registry interface {
	ForLevel(level domain.Level) []domain.Kind
}

type Options struct {
	// Parallelism bounds how many category subtrees are built at once.
	Parallelism int
	// MaxCustomersPerFeature materializes that many of each feature's largest customers as nodes.
	MaxCustomersPerFeature int
	Now                    func() time.Time
}

type Collector struct {
	resolver Resolver
	source   Source
	library  Library
	registry Registry
	opts     Options
}

func New(resolver Resolver, source Source, library Library, registry Registry, opts Options) *Collector {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Collector{
		resolver: resolver,
		source:   source,
		library:  library,
		registry: registry,
		opts:     opts,
	}
}

type Request struct {
	Quarter  string
	RunDate  time.Time
	Category string
}

// Collect builds the full report tree. Enumeration and fiscal resolution failures abort,
// as does cancellation of ctx; a failing analysis only leaves an empty placeholder on its node.
func (c *Collector) Collect(ctx context.Context, req Request) (*domain.Report, error) {
	started := c.opts.Now()
	runID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().
		Str("run_id", runID).
		Str("quarter", req.Quarter).
		Str("run_date", domain.FormatDate(req.RunDate)).
		Logger()
	ctx = logger.WithContext(ctx)

	report, err := c.collect(ctx, req, runID)
	if err != nil {
		collectionsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	elapsed := c.opts.Now().Sub(started)
	collectionsTotal.WithLabelValues("succeeded").Inc()
	collectionDuration.Observe(elapsed.Seconds())
	logger.Info().
		Int("categories", len(report.Root.Children)).
		Dur("elapsed", elapsed).
		Msg("collection finished")
	return report, nil
}

func (c *Collector) collect(ctx context.Context, req Request, runID string) (*domain.Report, error) {
	logger := zerolog.Ctx(ctx)

	dates, err := c.resolver.Resolve(ctx, req.Quarter)
	if err != nil {
		return nil, err
	}
	in := analysis.Input{Dates: dates, RunDate: req.RunDate}

	root := domain.NewEntityNode(domain.TotalName, domain.LevelTotal)
	if root.Analysis, err = c.analyze(ctx, in, domain.LevelTotal); err != nil {
		return nil, err
	}

	categories, err := c.enumerate(ctx, in, domain.FieldCategory)
	if err != nil {
		return nil, err
	}
	if req.Category != "" {
		if slices.Contains(categories, req.Category) {
			categories = []string{req.Category}
		} else {
			logger.Warn().
				Str("category", req.Category).
				Strs("available", categories).
				Msg("category filter matched nothing, collecting all categories")
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Parallelism)
	for _, name := range categories {
		g.Go(func() error {
			node, err := c.build(gctx, in, name, domain.LevelCategory)
			if err != nil {
				return err
			}
			mu.Lock()
			root.Children[name] = node
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A tree finished after cancellation may hold aborted analyses.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collection cancelled: %w", err)
	}

	return &domain.Report{
		Metadata: domain.Metadata{
			Quarter:        req.Quarter,
			RunDate:        req.RunDate,
			CategoryFilter: req.Category,
			Dates:          dates,
			GeneratedAt:    c.opts.Now().UTC().Truncate(time.Second),
			RunID:          runID,
			SchemaVersion:  domain.SchemaVersion,
		},
		Root: root,
	}, nil
}

// build creates the named child of parent and, depth-first, everything below it.
func (c *Collector) build(
	ctx context.Context,
	parent analysis.Input,
	name string,
	level domain.Level,
) (*domain.EntityNode, error) {
	in := parent
	in.Scope = parent.Scope.With(level, name)
	node := domain.NewEntityNode(name, level)

	var (
		children []string
		err      error
	)
	if node.Analysis, err = c.analyze(ctx, in, level); err != nil {
		return nil, err
	}
	switch level {
	case domain.LevelCategory:
		children, err = c.enumerate(ctx, in, domain.FieldUseCase)
	case domain.LevelUseCase:
		children, err = c.enumerate(ctx, in, domain.FieldFeature)
	case domain.LevelFeature:
		children, err = c.largestCustomers(ctx, in, c.opts.MaxCustomersPerFeature)
	}
	if err != nil {
		return nil, err
	}

	child, ok := domain.ChildOf(level)
	if !ok {
		return node, nil
	}
	for _, childName := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sub, err := c.build(ctx, in, childName, child.Name)
		if err != nil {
			return nil, err
		}
		node.Children[childName] = sub
	}
	return node, nil
}

func (c *Collector) enumerate(ctx context.Context, in analysis.Input, field domain.Field) ([]string, error) {
	values, err := c.source.Distinct(ctx, field, store.AmountQuery{
		Source:  store.SourceActuals,
		Window:  in.Dates.FullQuarter(),
		RunDate: in.RunDate,
		Scope:   in.Scope,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", field, err)
	}
	return values, nil
}

func (c *Collector) largestCustomers(ctx context.Context, in analysis.Input, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := c.source.SumBy(ctx, store.AmountQuery{
		Source:  store.SourceActuals,
		Window:  in.Dates.ToDate(),
		RunDate: in.RunDate,
		Scope:   in.Scope,
	}, store.GroupCustomer)
	if err != nil {
		return nil, fmt.Errorf("failed to rank customers: %w", err)
	}

	type ranked struct {
		name   string
		amount float64
	}
	var customers []ranked
	for _, r := range rows {
		if name, ok := r.Key(0); ok && r.Amount > 0 {
			customers = append(customers, ranked{name: name, amount: r.Amount})
		}
	}
	sort.Slice(customers, func(i, j int) bool {
		if customers[i].amount != customers[j].amount {
			return customers[i].amount > customers[j].amount
		}
		return customers[i].name < customers[j].name
	})
	if len(customers) > limit {
		customers = customers[:limit]
	}
	names := make([]string, len(customers))
	for i, cu := range customers {
		names[i] = cu.name
	}
	return names, nil
}

func (c *Collector) analyze(ctx context.Context, in analysis.Input, level domain.Level) (domain.Analyses, error) {
	out := domain.Analyses{}
	for _, kind := range c.registry.ForLevel(level) {
		res, err := c.runIsolated(ctx, kind, in, level)
		if err != nil {
			return nil, err
		}
		out[kind] = res
	}
	return out, nil
}

func aborted(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Collector) runIsolated(
	ctx context.Context,
	kind domain.Kind,
	in analysis.Input,
	level domain.Level,
) (result domain.Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx).With().
		Str("analysis", string(kind)).
		Str("level", string(level)).
		Str("category", in.Scope.Category).
		Str("use_case", in.Scope.UseCase).
		Str("feature", in.Scope.Feature).
		Str("customer", in.Scope.Customer).
		Logger()

	a, ok := c.library.Get(kind)
	if !ok {
		logger.Warn().Msg("analysis not available, storing empty result")
		analysesTotal.WithLabelValues(string(kind), "missing").Inc()
		return kind.Empty(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn().Interface("panic", r).Msg("analysis panicked, storing empty result")
			analysesTotal.WithLabelValues(string(kind), "failed").Inc()
			result, err = kind.Empty(), nil
		}
	}()

	res, err := a.Run(ctx, in)
	if err != nil {
		// Cancellation aborts the run instead of degrading the node.
		if aborted(ctx, err) {
			analysesTotal.WithLabelValues(string(kind), "aborted").Inc()
			return nil, err
		}
		logger.Warn().Err(err).Msg("analysis failed, storing empty result")
		analysesTotal.WithLabelValues(string(kind), "failed").Inc()
		return kind.Empty(), nil
	}
	if res == nil {
		res = kind.Empty()
	}
	analysesTotal.WithLabelValues(string(kind), "succeeded").Inc()
	return res, nil
}
