package ai

import "fmt"

// BuildPrompt returns the instruction sent with the page images of a
// document with totalPages pages.
func BuildPrompt(totalPages int) string {
	return fmt.Sprintf(`The attached images are the %d pages of one scanned PDF, in order, numbered 1 to %d.
The PDF may contain several separate documents (forms, letters, reports, ID cards, statements and so on).

Group the pages into logical documents:
- Every page from 1 to %d must belong to exactly one document.
- A document is a run of consecutive pages; do not interleave documents.
- Pages that cannot be classified are grouped as "Unclassified Document".

For each document return:
- "page_numbers": the 1-based page numbers it spans
- "document_type": a short human readable type such as "Consent Form" or "Lab Report"
- "suggested_filename": a short filename without extension
- "confidence": 0.0 to 1.0

Also return "analysis_confidence" for the grouping as a whole.
Answer with JSON only, matching the provided schema.`, totalPages, totalPages, totalPages)
}
