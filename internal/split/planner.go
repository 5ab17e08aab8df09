package split

import (
	"fmt"
	"path/filepath"
	"strings"
)

const defaultLabel = "document"

// PlanAI builds the plan for a classified source. Targets are
// {stem}_{label}_{start}-{end}.pdf, or {stem}_{label}_{start}.pdf for a
// single page, next to the source.
func PlanAI(src SourceDocument, spans []Span) SplitPlan {
	plan := SplitPlan{Source: src, Origin: OriginAI, Segments: make([]Segment, 0, len(spans))}
	dir, stem := splitPath(src.Path)
	for _, sp := range spans {
		label := sp.Label.DocumentType
		if strings.TrimSpace(label) == "" {
			label = sp.Label.SuggestedFilename
		}
		label = LabelSlug(label)
		// Spans do not overlap, so the range suffix keeps names unique.
		name := fmt.Sprintf("%s_%s_%d", stem, label, sp.Start)
		if sp.End > sp.Start {
			name = fmt.Sprintf("%s_%s_%d-%d", stem, label, sp.Start, sp.End)
		}
		plan.Segments = append(plan.Segments, Segment{
			PageRange:  sp.PageRange,
			Label:      label,
			Confidence: sp.Label.Confidence,
			Target:     filepath.Join(dir, name+".pdf"),
		})
	}
	return plan
}

// PlanExplicit builds the plan for caller supplied cuts. Each cut is
// validated on its own; cuts that fail are kept in Rejected. Targets are
// {stem}_{pdf_name}_{start}_{end}.pdf next to the source and the group's
// stale outputs become the cleanup list unchanged.
func PlanExplicit(src SourceDocument, g Group) SplitPlan {
	plan := SplitPlan{
		Source:       src,
		Origin:       OriginExplicit,
		Segments:     make([]Segment, 0, len(g.Cuts)),
		StaleOutputs: g.StaleOutputs,
	}
	dir, stem := splitPath(src.Path)
	for _, c := range g.Cuts {
		r := PageRange{Start: c.Start, End: c.End}
		if err := validateFor(src.Path, r, src.TotalPages); err != nil {
			plan.Rejected = append(plan.Rejected, err)
			continue
		}
		name := SanitizeName(c.PDFName)
		plan.Segments = append(plan.Segments, Segment{
			PageRange: r,
			Label:     name,
			Modify:    c.Modify,
			Target:    filepath.Join(dir, fmt.Sprintf("%s_%s_%d_%d.pdf", stem, name, c.Start, c.End)),
		})
	}
	return plan
}

// LabelSlug turns a document type such as "Consent Form" into
// "consent-form". An empty result becomes "document".
func LabelSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	return SanitizeName(s)
}

// SanitizeName keeps letters, digits, '-', '_' and '.' and replaces every
// other run of characters with a single '-'. Leading and trailing
// separators are trimmed.
func SanitizeName(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range s {
		ok := r == '-' || r == '_' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			if !dash {
				b.WriteByte('-')
				dash = true
			}
			continue
		}
		if r == '-' {
			if dash {
				continue
			}
			dash = true
		} else {
			dash = false
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "-_.")
	if out == "" {
		return defaultLabel
	}
	return out
}

func splitPath(p string) (dir, stem string) {
	dir = filepath.Dir(p)
	base := filepath.Base(p)
	return dir, strings.TrimSuffix(base, filepath.Ext(base))
}
