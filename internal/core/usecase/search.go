package usecase

import (
	"regexp"
	"unicode/utf8"

	"github.com/mkravets/pdf-extract-service/internal/core/domain"
)

const searchContextRadius = 100

type SearchMatch struct {
	Position  int    `json:"position"`
	Context   string `json:"context"`
	MatchText string `json:"match_text"`
}

type PageMatches struct {
	PageNumber int           `json:"page_number"`
	Matches    []SearchMatch `json:"matches"`
	MatchCount int           `json:"match_count"`
}

type SearchReport struct {
	Query            string        `json:"query"`
	Matches          []PageMatches `json:"matches"`
	TotalMatches     int           `json:"total_matches"`
	PagesWithMatches int           `json:"pages_with_matches"`
}

// SearchPages finds case-insensitive occurrences of query across extracted
// pages, each with surrounding context. Matching runs against the original
// text so offsets stay valid even when case mapping changes rune byte length.
func SearchPages(pages []domain.PageContent, query string) SearchReport {
	report := SearchReport{Query: query, Matches: []PageMatches{}}
	if query == "" {
		return report
	}
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(query))

	for _, page := range pages {
		locations := pattern.FindAllStringIndex(page.Text, -1)
		if len(locations) == 0 {
			continue
		}

		pageMatches := make([]SearchMatch, 0, len(locations))
		for _, loc := range locations {
			contextStart := loc[0] - searchContextRadius
			if contextStart < 0 {
				contextStart = 0
			}
			contextEnd := loc[1] + searchContextRadius
			if contextEnd > len(page.Text) {
				contextEnd = len(page.Text)
			}
			// The radius is counted in bytes; keep the window on rune
			// boundaries so the context is always valid UTF-8.
			for contextStart > 0 && !utf8.RuneStart(page.Text[contextStart]) {
				contextStart--
			}
			for contextEnd < len(page.Text) && !utf8.RuneStart(page.Text[contextEnd]) {
				contextEnd++
			}

			pageMatches = append(pageMatches, SearchMatch{
				Position:  loc[0],
				Context:   page.Text[contextStart:contextEnd],
				MatchText: page.Text[loc[0]:loc[1]],
			})
		}

		report.Matches = append(report.Matches, PageMatches{
			PageNumber: page.PageNumber,
			Matches:    pageMatches,
			MatchCount: len(pageMatches),
		})
		report.TotalMatches += len(pageMatches)
	}

	report.PagesWithMatches = len(report.Matches)
	return report
}
