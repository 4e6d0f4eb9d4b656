// Package ingest turns delimiter-separated text into validated vulnerabilities.
//
// The pipeline is deliberately lossy: short rows are padded, long rows truncated,
// rows missing a title, file or severity are dropped, and unparseable line numbers
// become 0. Nothing is reported unless the caller asks for Stats.
package ingest

import (
	"time"

	"github.com/user/vulndash/pkg/engine"
)

// Stats describes what happened to one batch.
type Stats struct {
	Rows    int `json:"rows"`
	Valid   int `json:"valid"`
	Dropped int `json:"dropped"`
}

// Pipeline holds ingestion options. It keeps no state between calls and is safe
// for concurrent use.
type Pipeline struct {
	now    func() time.Time
	quoted bool
}

type Option func(*Pipeline)

// WithClock sets the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithQuotedFields switches to a tokenizer that honors double-quoted fields, so
// titles such as "Injection, blind" stay in one column. The default splitter
// ignores quotes.
func WithQuotedFields() Option {
	return func(p *Pipeline) {
		p.quoted = true
	}
}

func New(opts ...Option) *Pipeline {
	p := &Pipeline{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest runs the default pipeline over raw.
func Ingest(raw string) []engine.Vulnerability {
	return New().Ingest(raw)
}

// Ingest parses raw and returns the vulnerabilities from valid rows in input order.
func (p *Pipeline) Ingest(raw string) []engine.Vulnerability {
	vulns, _ := p.IngestWithStats(raw)
	return vulns
}

// IngestWithStats is Ingest plus a count of the rows that did not make it.
func (p *Pipeline) IngestWithStats(raw string) ([]engine.Vulnerability, Stats) {
	rows, malformed := p.tokenize(raw)
	if len(rows) < 2 {
		return []engine.Vulnerability{}, Stats{Rows: malformed, Dropped: malformed}
	}

	records := BuildRecords(MapHeaders(rows[0]), rows[1:])

	now := p.now()
	out := make([]engine.Vulnerability, 0, len(records))
	for _, rec := range records {
		if !Validate(rec) {
			continue
		}
		out = append(out, ToVulnerability(rec, len(out), now))
	}

	total := len(records) + malformed
	return out, Stats{Rows: total, Valid: len(out), Dropped: total - len(out)}
}

func (p *Pipeline) tokenize(raw string) ([]Row, int) {
	if p.quoted {
		return splitQuoted(raw)
	}
	return SplitRows(raw), 0
}
