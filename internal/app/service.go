package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"outlook/api/internal/config"
	"outlook/api/internal/kv"
	"outlook/api/internal/ops"
	"outlook/api/internal/outlook"
	"outlook/api/internal/patch"
	"outlook/api/internal/search"
	"outlook/api/internal/views"
)

// Service backs both the public company pages and the operator dashboard.
type Service struct {
	cfg       config.Config
	store     kv.Store
	logger    *zap.Logger
	catalog   *outlook.Catalog
	runs      *ops.RunIndex
	decisions *ops.DecisionStore
	overrides *ops.OverrideLayer
	publisher *ops.Publisher
	views     *views.Tracker
	search    *search.Service
	now       func() time.Time
}

func New(cfg config.Config, store kv.Store, catalog *outlook.Catalog, runs *ops.RunIndex, searchService *search.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if searchService == nil {
		searchService = search.NewService(nil, search.NewLocal(catalog.All()), logger)
	}
	return &Service{
		cfg:       cfg,
		store:     store,
		logger:    logger,
		catalog:   catalog,
		runs:      runs,
		decisions: ops.NewDecisionStore(store, logger),
		overrides: ops.NewOverrideLayer(store, logger),
		publisher: ops.NewPublisher(store, logger),
		views:     views.NewTracker(store, logger),
		search:    searchService,
		now:       time.Now,
	}
}

// Bootstrap indexes the published company text for search.
func (s *Service) Bootstrap(ctx context.Context) {
	s.refreshSearch(ctx)
	s.logger.Info("bootstrap: ready",
		zap.Int("companies", s.catalog.Len()),
		zap.Int("runs", len(s.runs.List())))
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) published(ctx context.Context) []outlook.PublishedView {
	return outlook.ApplyOverrides(s.catalog.All(), func(ticker string) *ops.Override {
		return s.overrides.Override(ctx, ticker)
	})
}

func (s *Service) refreshSearch(ctx context.Context) {
	published := s.published(ctx)
	companies := make([]outlook.Company, 0, len(published))
	for _, view := range published {
		companies = append(companies, view.Company)
	}
	s.search.Reindex(companies)
}

// CompanySummary is the list entry for a company.
type CompanySummary struct {
	Ticker string   `json:"ticker"`
	Name   string   `json:"name"`
	NameJA string   `json:"name_ja,omitempty"`
	Slug   string   `json:"slug"`
	Tags   []string `json:"tags,omitempty"`
}

func summarize(c outlook.Company) CompanySummary {
	return CompanySummary{Ticker: c.Ticker, Name: c.Name, NameJA: c.NameJA, Slug: c.Slug, Tags: c.Tags}
}

// ListCompanies returns every company when q is blank, otherwise the search
// response for q.
func (s *Service) ListCompanies(q string) map[string]any {
	if strings.TrimSpace(q) == "" {
		all := s.catalog.All()
		items := make([]CompanySummary, 0, len(all))
		for _, c := range all {
			items = append(items, summarize(c))
		}
		return map[string]any{"items": items, "total": len(items)}
	}
	resp := s.search.Search(search.Query{Text: q, Limit: outlook.MaxMatches})
	return map[string]any{
		"query":   resp.Query,
		"direct":  resp.Direct,
		"keyword": resp.Keyword,
		"total":   resp.Total,
		"source":  resp.Source,
	}
}

// CompanyPage is the public company page payload.
type CompanyPage struct {
	Company outlook.PublishedView `json:"company"`
	Meta    *ops.Meta             `json:"meta"`
	LastRun string                `json:"lastRun,omitempty"`
}

func (s *Service) GetCompany(ctx context.Context, slug string) (CompanyPage, error) {
	c, ok := s.catalog.BySlug(slug)
	if !ok {
		return CompanyPage{}, notFound("Company not found")
	}
	return CompanyPage{
		Company: outlook.ApplyOverride(c, s.overrides.Override(ctx, c.Ticker)),
		Meta:    s.overrides.Meta(ctx, c.Ticker),
		LastRun: s.runs.LastRunMentioning(c.Ticker),
	}, nil
}

func (s *Service) RecordView(ctx context.Context, slug string) error {
	if _, ok := s.catalog.BySlug(slug); !ok {
		return notFound("Company not found")
	}
	if err := s.views.Record(ctx, slug); err != nil {
		return domainError(http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Could not record view", nil)
	}
	return nil
}

// TrendingRow is a trending entry joined with its company.
type TrendingRow struct {
	views.Row
	Ticker string `json:"ticker,omitempty"`
	Name   string `json:"name,omitempty"`
}

func (s *Service) Trending(ctx context.Context, window string, limit int) (map[string]any, error) {
	w, err := views.ParseWindow(window)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.TrendingLimit
	}
	rows := s.views.Trending(ctx, w, limit)
	items := make([]TrendingRow, 0, len(rows))
	for _, row := range rows {
		item := TrendingRow{Row: row}
		if c, ok := s.catalog.BySlug(row.Slug); ok {
			item.Ticker = c.Ticker
			item.Name = c.Name
		}
		items = append(items, item)
	}
	return map[string]any{"window": w, "items": items}, nil
}

// RunSummary is one row of the run list.
type RunSummary struct {
	Date     string `json:"date"`
	ScanTime string `json:"scanTime,omitempty"`
	Items    int    `json:"items"`
	Pending  int    `json:"pending"`
	Decided  int    `json:"decided"`
}

func (s *Service) ListRuns(ctx context.Context) []RunSummary {
	runs := s.runs.List()
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		decisions := s.decisions.Load(ctx, run.Date)
		q := ops.BuildQueue(run, decisions, ops.QueueFilter{})
		out = append(out, RunSummary{
			Date:     run.Date,
			ScanTime: run.ScanTime,
			Items:    q.Counts.Total,
			Pending:  q.Counts.NeedsReview,
			Decided:  len(decisions),
		})
	}
	return out
}

func (s *Service) run(date string) (ops.Run, error) {
	if !ops.ValidRunDate(date) {
		return ops.Run{}, ops.ErrInvalidRunDate
	}
	run, ok := s.runs.Get(date)
	if !ok {
		return ops.Run{}, fmt.Errorf("%w: %s", ops.ErrRunNotFound, date)
	}
	return run, nil
}

func (s *Service) RunQueue(ctx context.Context, date string, filter ops.QueueFilter) (ops.Queue, error) {
	run, err := s.run(date)
	if err != nil {
		return ops.Queue{}, err
	}
	return ops.BuildQueue(run, s.decisions.Load(ctx, date), filter), nil
}

// DecideItem records the operator's decision for one action item of a run.
func (s *Service) DecideItem(ctx context.Context, date, itemID string, decision ops.Decision, note string) (ops.DecisionRecord, error) {
	run, err := s.run(date)
	if err != nil {
		return ops.DecisionRecord{}, err
	}
	item, ok := run.Item(itemID)
	if !ok {
		return ops.DecisionRecord{}, fmt.Errorf("%w: %s", ops.ErrItemNotFound, itemID)
	}
	if !decision.Valid() {
		return ops.DecisionRecord{}, ops.ErrInvalidDecision
	}
	record := ops.NewDecisionRecord(date, item, decision, note, s.now())
	return s.decisions.Upsert(ctx, date, record)
}

// RunPatch renders the approved edits of a run as patch text.
func (s *Service) RunPatch(ctx context.Context, date string) (map[string]any, error) {
	run, err := s.run(date)
	if err != nil {
		return nil, err
	}
	entries := ops.ApprovedPatch(run, s.decisions.Load(ctx, date))
	return map[string]any{
		"runDate": date,
		"count":   len(entries),
		"text":    patch.Format(date, entries),
	}, nil
}

func (s *Service) ListDecisions(ctx context.Context, runDate string) (map[string]any, error) {
	runDate = strings.TrimSpace(runDate)
	if runDate == "" {
		return nil, badRequest("Missing run")
	}
	if !ops.ValidRunDate(runDate) {
		return nil, ops.ErrInvalidRunDate
	}
	return map[string]any{"run": runDate, "items": s.decisions.Load(ctx, runDate)}, nil
}

func (s *Service) SaveDecision(ctx context.Context, runDate string, record *ops.DecisionRecord) (ops.DecisionRecord, error) {
	if strings.TrimSpace(runDate) == "" || record == nil || strings.TrimSpace(record.ID) == "" {
		return ops.DecisionRecord{}, badRequest("Missing runDate or record.id")
	}
	return s.decisions.Upsert(ctx, strings.TrimSpace(runDate), *record)
}

func (s *Service) ClearDecisions(ctx context.Context, runDate string) error {
	if strings.TrimSpace(runDate) == "" {
		return badRequest("Missing run")
	}
	return s.decisions.Clear(ctx, strings.TrimSpace(runDate))
}

// ParsedPatch is a parse result with the run date the publish would use.
type ParsedPatch struct {
	patch.Result
	RunDate string `json:"runDate"`
}

func (s *Service) ParsePatch(text, manualRunDate string) ParsedPatch {
	result := patch.Parse(text)
	return ParsedPatch{Result: result, RunDate: patch.ResolveRunDate(manualRunDate, result.DetectedRunDate)}
}

// Publish merges a patch into the override layer. After a live publish the
// search index is refreshed so it matches the displayed text.
func (s *Service) Publish(ctx context.Context, req ops.PublishRequest) (ops.PublishResult, error) {
	result, err := s.publisher.Publish(ctx, req)
	if err != nil {
		return ops.PublishResult{}, err
	}
	if !result.DryRun && result.Count > 0 {
		s.refreshSearch(ctx)
	}
	return result, nil
}

func (s *Service) Override(ctx context.Context, ticker string) (map[string]any, error) {
	ticker = strings.TrimSpace(ticker)
	if _, ok := s.catalog.ByTicker(ticker); !ok {
		return nil, notFound("Company not found")
	}
	return map[string]any{
		"ticker":   ticker,
		"override": s.overrides.Override(ctx, ticker),
		"meta":     s.overrides.Meta(ctx, ticker),
	}, nil
}

func (s *Service) PublishAudit(ctx context.Context, runDate string) (*ops.AuditEntry, error) {
	if !ops.ValidRunDate(runDate) {
		return nil, ops.ErrInvalidRunDate
	}
	audit := s.overrides.Audit(ctx, runDate)
	if audit == nil {
		return nil, notFound("No publish recorded for run")
	}
	return audit, nil
}
