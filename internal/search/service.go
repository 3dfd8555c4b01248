package search

import (
	"strings"

	"go.uber.org/zap"

	"outlook/api/internal/outlook"
)

// Service is the facade that tries Meilisearch first and falls back to the
// in-process scorer. Direct matches always come from the local snapshot.
type Service struct {
	meili  *Meili
	local  *Local
	logger *zap.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, local *Local, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{meili: meili, local: local, logger: logger}
}

// Search answers q. An empty query matches nothing.
func (s *Service) Search(q Query) Response {
	q.Text = strings.TrimSpace(q.Text)
	resp := Response{Query: q.Text, Direct: []Result{}, Keyword: []Result{}, Source: SourceLocal}
	if q.Text == "" {
		return resp
	}
	resp.Direct = s.local.Direct(q)

	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			resp.Keyword = nonNil(results)
			resp.Total = total
			resp.Source = SourceMeili
			return resp
		}
		s.logger.Warn("search: meilisearch error, falling back to local scorer", zap.Error(err))
	}

	results, total, err := s.local.Search(q)
	if err != nil {
		s.logger.Warn("search: local scorer error", zap.Error(err))
		return resp
	}
	resp.Keyword = nonNil(results)
	resp.Total = total
	return resp
}

// Reindex replaces the local snapshot and pushes the companies to
// Meilisearch in the background.
func (s *Service) Reindex(companies []outlook.Company) {
	s.local.Replace(companies)
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	records := make([]CompanyRecord, 0, len(companies))
	for _, c := range companies {
		records = append(records, NewCompanyRecord(c))
	}
	go func() {
		if err := s.meili.IndexCompanies(records); err != nil {
			s.logger.Warn("search: reindex companies", zap.Int("count", len(records)), zap.Error(err))
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
