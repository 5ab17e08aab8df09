package split

import (
	"fmt"
	"sort"
)

// Span is the contiguous range covering one classifier entry.
type Span struct {
	PageRange
	Label PageLabel
}

// Normalize turns classifier labels into spans that tile [1, totalPages]
// exactly once. Each label's page set is collapsed to its min..max span;
// pages missing inside a span are absorbed. Gaps and overlaps between spans
// are reported as a BoundaryInconsistencyError and never repaired.
func Normalize(source string, labels []PageLabel, totalPages int) ([]Span, error) {
	inconsistent := func(format string, args ...any) error {
		return &BoundaryInconsistencyError{Source: source, Reason: fmt.Sprintf(format, args...)}
	}
	if totalPages < 1 {
		return nil, inconsistent("document has no pages")
	}
	if len(labels) == 0 {
		return nil, inconsistent("classifier returned no documents")
	}

	spans := make([]Span, 0, len(labels))
	for i, l := range labels {
		if len(l.Pages) == 0 {
			return nil, inconsistent("document %d has no pages", i+1)
		}
		lo, hi := l.Pages[0], l.Pages[0]
		for _, p := range l.Pages[1:] {
			if p < lo {
				lo = p
			}
			if p > hi {
				hi = p
			}
		}
		r := PageRange{Start: lo, End: hi}
		if err := ValidateRange(r, totalPages); err != nil {
			return nil, inconsistent("document %d references pages %d-%d outside 1-%d", i+1, lo, hi, totalPages)
		}
		spans = append(spans, Span{PageRange: r, Label: l})
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})

	if spans[0].Start != 1 {
		return nil, inconsistent("pages 1-%d are not covered", spans[0].Start-1)
	}
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		switch {
		case cur.Start > prev.End+1:
			return nil, inconsistent("pages %d-%d are not covered", prev.End+1, cur.Start-1)
		case cur.Start <= prev.End:
			return nil, inconsistent("pages %d-%d overlap pages %d-%d", cur.Start, cur.End, prev.Start, prev.End)
		}
	}
	if last := spans[len(spans)-1]; last.End != totalPages {
		return nil, inconsistent("pages %d-%d are not covered", last.End+1, totalPages)
	}
	return spans, nil
}
