package tasks

import (
	"context"

	"github.com/desertthunder/chorus/internal/formatter"
	"github.com/desertthunder/chorus/internal/links"
	"github.com/desertthunder/chorus/internal/models"
)

// BuildFallback derives a search-these-services-instead reply for the
// candidate using only locally reachable information. It never fails.
//
// When a metadata probe is configured for the candidate's service, a short
// probe recovers title/author for a cleaner search query; on any probe miss
// the raw URL serves as the query. The reply suggests a search on every
// supported service except the candidate's own.
func (e *Engine) BuildFallback(ctx context.Context, cand models.Candidate) string {
	query := cand.URL

	if e.probe != nil {
		probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
		defer cancel()

		if info, err := e.probe.Probe(probeCtx, cand); err == nil && info != nil && info.Title != "" {
			q := info.Title
			if info.Author != "" {
				q += " " + info.Author
			}
			if refined := links.RefineQuery(q); refined != "" {
				query = refined
			}
		} else if err != nil {
			e.logger.Debug("metadata probe miss", "url", cand.URL, "err", err)
		}
	}

	return formatter.FormatFallback(cand, query)
}
