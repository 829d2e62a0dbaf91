package links

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\s*[(\[][^)\]]*[)\]]`)
	featClause    = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.?|featuring)\s+.*$`)
	multiSpace    = regexp.MustCompile(`\s{2,}`)
)

// RefineQuery reduces a track title (or title + artist pair) to a search
// query by stripping parenthetical annotations (remix/live tags) and
// trailing featured-artist clauses.
func RefineQuery(query string) string {
	q := parenthetical.ReplaceAllString(query, "")
	q = featClause.ReplaceAllString(q, "")
	q = multiSpace.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}
