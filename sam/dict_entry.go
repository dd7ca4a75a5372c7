// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

// dictEntry is the bookkeeping a Header uses to place a Reference,
// ReadGroup or Program at a stable slot in one of its dictionaries: which
// Header last admitted it, and at what index. Reference, ReadGroup and
// Program each embed one instead of repeating the same owner/id pair and
// the same "reset on Clone" logic three times.
type dictEntry struct {
	owner *Header
	id    int32
}

// newDictEntry returns a dictEntry for an entry that has not yet been
// added to a Header.
func newDictEntry() dictEntry {
	return dictEntry{id: -1}
}

// index returns the entry's position in its owning Header's dictionary, or
// -1 if it has none.
func (e dictEntry) index() int {
	return int(e.id)
}

// detach clears the entry's owner and index, as Clone does for the copy it
// returns: a cloned Reference/ReadGroup/Program belongs to no Header until
// it is added.
func (e *dictEntry) detach() {
	e.owner = nil
	e.id = -1
}

// attach claims e for h at position idx, the common first step of every
// Header.AddXxx method. It fails with used if e already belongs to a
// Header, cloned or not: an entry can only ever be added once without an
// intervening Clone.
func (e *dictEntry) attach(h *Header, idx int32, used error) error {
	if e.owner != nil || e.id >= 0 {
		return used
	}
	e.owner = h
	e.id = idx
	return nil
}
