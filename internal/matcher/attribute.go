package matcher

import (
	"fmt"
	"sort"

	"github.com/darved2305/VeriTextAI/internal/model"
	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

// attribute gives each document token to the highest ranked source covering
// it. Ranking is raw percentage descending, then source ID ascending. The
// returned percentages and spans only count attributed tokens.
func attribute(text *textnorm.Text, candidates []*candidate) ([]model.MatchedSource, []model.FlaggedSection) {
	if len(candidates) == 0 {
		return []model.MatchedSource{}, nil
	}
	ranked := append([]*candidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].raw != ranked[j].raw {
			return ranked[i].raw > ranked[j].raw
		}
		return ranked[i].src.ID < ranked[j].src.ID
	})

	owner := make([]int, len(text.Tokens))
	for i := range owner {
		owner[i] = -1
	}
	for rank, c := range ranked {
		for _, h := range c.merged {
			for tok := h.startTok; tok < h.endTok; tok++ {
				if owner[tok] < 0 {
					owner[tok] = rank
				}
			}
		}
	}

	sources := make([]model.MatchedSource, 0, len(ranked))
	var sections []model.FlaggedSection
	for rank, c := range ranked {
		var spans []model.MatchSpan
		for _, h := range c.merged {
			runStart := -1
			for tok := h.startTok; tok <= h.endTok; tok++ {
				mine := tok < h.endTok && owner[tok] == rank
				switch {
				case mine && runStart < 0:
					runStart = tok
				case !mine && runStart >= 0:
					spans = append(spans, model.MatchSpan{
						Start:       text.Tokens[runStart].Start,
						End:         text.Tokens[tok-1].End,
						SourceStart: h.srcStart,
						SourceEnd:   h.srcEnd,
						Tokens:      tok - runStart,
					})
					runStart = -1
				}
			}
		}
		if len(spans) == 0 {
			continue
		}

		tokens := 0
		longest := spans[0]
		for _, s := range spans {
			tokens += s.Tokens
			if s.Tokens > longest.Tokens {
				longest = s
			}
		}
		pct := percentage(tokens, text.WordCount())
		severity := model.SeverityFor(pct)
		src := c.src
		sources = append(sources, model.MatchedSource{
			SourceID:        src.ID,
			URL:             src.URL,
			Title:           src.Title,
			Author:          src.Author,
			Type:            sourceType(src.Type),
			MatchPercentage: pct,
			Severity:        severity,
			MatchedText:     text.Slice(longest.Start, longest.End),
			StartPosition:   spans[0].Start,
			EndPosition:     spans[len(spans)-1].End,
			Spans:           spans,
		})
		for _, s := range spans {
			sections = append(sections, model.FlaggedSection{
				Type:        model.SectionPlagiarism,
				Text:        text.Slice(s.Start, s.End),
				StartOffset: s.Start,
				EndOffset:   s.End,
				Confidence:  Confidence,
				Severity:    severity,
				Explanation: fmt.Sprintf("Matches %s", label(src.Title, src.ID)),
				SourceRef:   src.ID,
			})
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].MatchPercentage != sources[j].MatchPercentage {
			return sources[i].MatchPercentage > sources[j].MatchPercentage
		}
		return sources[i].SourceID < sources[j].SourceID
	})
	return sources, sections
}

func sourceType(t model.SourceType) model.SourceType {
	if t == "" {
		return model.SourceWeb
	}
	return t
}

func label(title, id string) string {
	if title != "" {
		return fmt.Sprintf("%q", title)
	}
	return "source " + id
}
