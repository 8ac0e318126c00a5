package stmt

// Fetchable receives the batches of a fetch loop.
//
// Per batch the loop calls PreBulkAction, fills the column buffers, then
// PostBulkAction with the number of rows of the batch (never 0).
// After the last batch exactly one of NotFoundAction (no row at all) or
// PostRepeatAction is called. FinalizeAction is always called last, even on error.
type Fetchable interface {
	PreBulkAction(bulk int) error
	PostBulkAction(rows int) error
	FeedbackAction(total int64) error
	NotFoundAction() error
	PostRepeatAction() error
	FinalizeAction() error
}

// BaseFetchable implements every callback as a no-op. Embed it and override what is needed.
type BaseFetchable struct{}

func (BaseFetchable) PreBulkAction(bulk int) error     { return nil }
func (BaseFetchable) PostBulkAction(rows int) error    { return nil }
func (BaseFetchable) FeedbackAction(total int64) error { return nil }
func (BaseFetchable) NotFoundAction() error            { return nil }
func (BaseFetchable) PostRepeatAction() error          { return nil }
func (BaseFetchable) FinalizeAction() error            { return nil }
