package models

// SyncError describes one record that could not be synced, for display in
// the aggregate status. The UI never sees raw stack traces.
type SyncError struct {
	LocalID string
	Kind    OpKind
	Reason  string
}

// SyncSummary is the user-visible outcome of one sync pass.
type SyncSummary struct {
	Synced  int
	Failed  int
	Skipped int
	Errors  []SyncError
}

// BatchItem pairs a record with the net operation the reconciler chose for it.
type BatchItem struct {
	Record *Record
	Op     *PendingOperation
}

// Batch is the reconciler's output: pending work grouped by operation kind,
// ready to be submitted as one bulk request.
type Batch struct {
	Creates []BatchItem
	Updates []BatchItem
	Deletes []BatchItem

	// Skipped holds records resolved without any network call (for example
	// a tombstone that never reached the remote store).
	Skipped []BatchItem
}

// Size reports how many items need a remote call.
func (b *Batch) Size() int {
	return len(b.Creates) + len(b.Updates) + len(b.Deletes)
}

// Items returns all network-bound items in classification order.
func (b *Batch) Items() []BatchItem {
	items := make([]BatchItem, 0, b.Size())
	items = append(items, b.Creates...)
	items = append(items, b.Updates...)
	items = append(items, b.Deletes...)
	return items
}
