package split

// ValidateRange checks r against a document of totalPages pages.
// It performs no I/O.
func ValidateRange(r PageRange, totalPages int) error {
	if r.Start < 1 || r.End < r.Start || r.End > totalPages {
		return &InvalidRangeError{Start: r.Start, End: r.End, TotalPages: totalPages}
	}
	return nil
}

// validateFor is ValidateRange with the source path attached to the error.
func validateFor(source string, r PageRange, totalPages int) error {
	if err := ValidateRange(r, totalPages); err != nil {
		err.(*InvalidRangeError).Source = source
		return err
	}
	return nil
}
