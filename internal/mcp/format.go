package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/buscador/internal/matcher"
	"github.com/Aman-CERP/buscador/internal/search"
)

// FormatSearchResults renders a search response as markdown.
func FormatSearchResults(resp search.Response) string {
	var sb strings.Builder

	if resp.Total == 0 {
		fmt.Fprintf(&sb, "No results for **%s**.\n", resp.Query)
		return sb.String()
	}

	fmt.Fprintf(&sb, "## %d result(s) for \"%s\"\n\n", resp.Total, resp.Query)
	for i, r := range resp.Results {
		fmt.Fprintf(&sb, "### %d. %s / %s\n\n", i+1, r.Source, r.Field)
		sb.WriteString(r.Snippet)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// FormatMatches renders context matches as markdown.
func FormatMatches(path, query string, res matcher.Result) string {
	var sb strings.Builder

	if len(res.Matches) == 0 {
		fmt.Fprintf(&sb, "No occurrences of **%s** in `%s`.\n", query, path)
		return sb.String()
	}

	fmt.Fprintf(&sb, "## %d occurrence(s) of \"%s\" in `%s`\n\n", len(res.Matches), query, path)
	for _, m := range res.Matches {
		fmt.Fprintf(&sb, "- **%s** (position %d): %s\n", m.Location, m.Position, oneLine(m.Excerpt))
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
