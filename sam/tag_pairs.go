// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

// getOtherTag returns the value paired with t in tags, or "" if t is absent.
// Header, Reference, ReadGroup and Program all fall back to an otherTags
// slice once their well-known tags are exhausted; this is that lookup.
func getOtherTag(tags []tagPair, t Tag) string {
	for _, tp := range tags {
		if t == tp.tag {
			return tp.value
		}
	}
	return ""
}

// setOtherTag inserts, updates or deletes t's entry in *tags: an empty
// value deletes an existing entry (a no-op if t isn't present), a non-empty
// value overwrites an existing entry or appends a new one.
func setOtherTag(tags *[]tagPair, t Tag, value string) {
	for i, tp := range *tags {
		if t != tp.tag {
			continue
		}
		if value == "" {
			*tags = append((*tags)[:i], (*tags)[i+1:]...)
		} else {
			(*tags)[i].value = value
		}
		return
	}
	if value != "" {
		*tags = append(*tags, tagPair{tag: t, value: value})
	}
}
