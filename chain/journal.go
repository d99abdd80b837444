// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package chain

// Journal records compensating actions for the state changes of a single
// call so they can be undone if a later step fails.
type Journal struct {
	undo []func()
}

// Append records fn to run on Revert.
func (j *Journal) Append(fn func()) {
	j.undo = append(j.undo, fn)
}

// Revert undoes every recorded change, newest first, and resets the journal.
func (j *Journal) Revert() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// Commit forgets every recorded change.
func (j *Journal) Commit() {
	j.undo = nil
}

// Len returns the number of recorded changes
func (j *Journal) Len() int {
	return len(j.undo)
}
