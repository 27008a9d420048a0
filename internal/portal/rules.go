package portal

// CanSubmitDocument reports whether the borrower dashboard offers the
// document submission control for rec.
func CanSubmitDocument(rec BorrowerRecord) bool {
	return rec.Status.IsNull()
}

// ShowsReviewControls reports whether the underwriter table offers the
// Explanation and Change Decision controls for rec.
func ShowsReviewControls(rec BorrowerRecord) bool {
	return rec.Status.Explainable()
}
