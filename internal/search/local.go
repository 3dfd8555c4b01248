package search

import (
	"sync"

	"outlook/api/internal/outlook"
)

// Local implements Searcher over an in-memory company snapshot using the
// keyword ranking from the outlook package. It is always healthy.
type Local struct {
	mu        sync.RWMutex
	companies []outlook.Company
}

func NewLocal(companies []outlook.Company) *Local {
	l := &Local{}
	l.Replace(companies)
	return l
}

// Replace swaps the snapshot, e.g. after a publish changes displayed text.
func (l *Local) Replace(companies []outlook.Company) {
	snapshot := make([]outlook.Company, len(companies))
	copy(snapshot, companies)
	l.mu.Lock()
	l.companies = snapshot
	l.mu.Unlock()
}

func (l *Local) Companies() []outlook.Company {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.companies
}

func (l *Local) Healthy() bool { return true }

func (l *Local) Search(q Query) ([]Result, int, error) {
	matches := outlook.KeywordMatches(l.Companies(), q.Text, q.Limit)
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		r := resultFor(m.Company)
		r.Hits = m.Hits
		results = append(results, r)
	}
	return results, len(results), nil
}

// Direct returns the ticker/name/slug matches.
func (l *Local) Direct(q Query) []Result {
	matches := outlook.DirectMatches(l.Companies(), q.Text, q.Limit)
	results := make([]Result, 0, len(matches))
	for _, c := range matches {
		results = append(results, resultFor(c))
	}
	return results
}
