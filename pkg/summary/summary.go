// Package summary keeps short descriptions of taxa taken from an external
// encyclopedia. Reading a summary never calls the external service: missing
// summaries are fetched by a background job. Failed lookups leave a date
// sentinel that suppresses retries for a cool-down period.
package summary

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/gnames/gntree/pkg/jobs"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/taxon"
)

// MaxWords is the length limit of a stored summary.
const MaxWords = 76

// SentinelLayout is the format of the failed lookup date.
const SentinelLayout = "2006-01-02"

var (
	footnoteRe = regexp.MustCompile(`\[.*?\]`)
	sentinelRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Fetcher gets a plain text summary by a title. An empty result means the
// service has nothing for the title.
type Fetcher interface {
	Fetch(ctx context.Context, title string) (string, error)
}

// Clean removes footnote markers and truncates text to MaxWords words,
// adding "..." when something was cut.
func Clean(text string) string {
	text = footnoteRe.ReplaceAllString(text, "")
	words := strings.Fields(text)
	if len(words) <= MaxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:MaxWords], " ") + "..."
}

// Sentinel returns the stored value of a failed lookup made at t.
func Sentinel(t time.Time) string {
	return t.Format(SentinelLayout)
}

// ParseSentinel returns the date of a failed lookup if s is a sentinel.
func ParseSentinel(s string) (time.Time, bool) {
	if !sentinelRe.MatchString(s) {
		return time.Time{}, false
	}
	res, err := time.Parse(SentinelLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return res, true
}

// Title is what the external service is asked about.
func Title(t *schema.Taxon) string {
	if t.WikipediaTitle != "" {
		return t.WikipediaTitle
	}
	return t.Name
}

// Decision tells what to do with a stored summary value.
type Decision struct {
	// Text is a summary to show, empty if there is none.
	Text string

	// Fetch is true if a lookup should be scheduled.
	Fetch bool
}

// Decide applies cool-down rules to a stored value.
func Decide(stored string, now time.Time, coolDown time.Duration, reload bool) Decision {
	if date, ok := ParseSentinel(stored); ok {
		if now.Sub(date) < coolDown {
			return Decision{}
		}
		return Decision{Fetch: true}
	}
	if stored == "" || reload {
		return Decision{Text: stored, Fetch: true}
	}
	return Decision{Text: stored}
}

// Service reads and refreshes summaries of taxa.
type Service struct {
	store    taxon.Store
	fetcher  Fetcher
	queue    jobs.Enqueuer
	coolDown time.Duration
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// OptCoolDown sets how long a failed lookup suppresses retries.
func OptCoolDown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.coolDown = d
		}
	}
}

// OptClock replaces the source of current time.
func OptClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a summary Service.
func New(
	store taxon.Store,
	fetcher Fetcher,
	queue jobs.Enqueuer,
	opts ...Option,
) *Service {
	res := &Service{
		store:    store,
		fetcher:  fetcher,
		queue:    queue,
		coolDown: 7 * 24 * time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Summary returns a stored summary of a taxon. When there is none, or
// reload is set, a lookup job is enqueued unless a recent lookup failed.
func (s *Service) Summary(ctx context.Context, id int64, reload bool) (string, error) {
	t, err := s.store.Taxon(ctx, id)
	if err != nil {
		if taxon.IsNotFound(err) {
			return "", taxon.NotFoundError(id)
		}
		return "", taxon.StoreError("load taxon", err)
	}

	d := Decide(t.WikipediaSummary, s.now(), s.coolDown, reload)
	if d.Fetch && s.queue != nil {
		if _, err = s.queue.Enqueue(ctx, jobs.TaxonSummary, id); err != nil {
			slog.Warn("Cannot enqueue summary job", "taxon", id, "error", err)
		}
	}
	return d.Text, nil
}

// Refresh fetches a summary and stores it. Failed or empty lookups store
// today's sentinel and are not reported as errors.
func (s *Service) Refresh(ctx context.Context, id int64) (string, error) {
	t, err := s.store.Taxon(ctx, id)
	if err != nil {
		if taxon.IsNotFound(err) {
			return "", taxon.NotFoundError(id)
		}
		return "", taxon.StoreError("load taxon", err)
	}

	title := Title(t)
	text, err := s.fetcher.Fetch(ctx, title)
	if err != nil {
		slog.Info("Summary lookup failed", "taxon", id, "title", title,
			"error", err)
		text = ""
	}
	text = Clean(text)
	if text == "" {
		text = Sentinel(s.now())
		if err = s.store.SetSummary(ctx, id, text); err != nil {
			return "", taxon.StoreError("save summary", err)
		}
		return "", nil
	}

	if err = s.store.SetSummary(ctx, id, text); err != nil {
		return "", taxon.StoreError("save summary", err)
	}
	return text, nil
}

// Handler returns a job handler that refreshes summaries.
func (s *Service) Handler() jobs.Handler {
	return jobs.NewHandler(jobs.TaxonSummary,
		func(ctx context.Context, id int64) error {
			_, err := s.Refresh(ctx, id)
			if taxon.IsNotFound(err) {
				// taxon was merged away, nothing to do
				return nil
			}
			return err
		})
}
