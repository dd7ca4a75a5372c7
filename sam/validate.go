// Copyright ©2012-2013 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

// ValidationError enumerates a specific way a Record fails validation.
// It generalizes the single pass/fail check the format otherwise allows
// into the individual conditions a validation reporter needs to name.
type ValidationError int

const (
	// InvalidAlignmentStart marks a record whose placement flags and
	// reference/position fields disagree, for either the record itself
	// or its mate.
	InvalidAlignmentStart ValidationError = iota

	// InvalidFlagProperPair marks a record whose ProperPair flag is
	// inconsistent with its Unmapped/MateUnmapped flags.
	InvalidFlagProperPair

	// InvalidMappingQuality marks an unmapped record carrying a nonzero
	// mapping quality.
	InvalidMappingQuality

	// InvalidInsertSize marks a record whose template length falls
	// outside the representable BAM range.
	InvalidInsertSize

	// CigarMapsOffReference marks a mapped record whose alignment, as laid
	// out by its CIGAR, ends past the end of its reference.
	CigarMapsOffReference

	// MismatchReadLengthAndQualsLength marks a record whose quality
	// string length disagrees with its sequence length.
	MismatchReadLengthAndQualsLength
)

func (e ValidationError) String() string {
	switch e {
	case InvalidAlignmentStart:
		return "invalid alignment start"
	case InvalidFlagProperPair:
		return "invalid proper-pair flag"
	case InvalidMappingQuality:
		return "invalid mapping quality"
	case InvalidInsertSize:
		return "invalid insert size"
	case CigarMapsOffReference:
		return "cigar maps off reference"
	case MismatchReadLengthAndQualsLength:
		return "mismatched read length and quality length"
	default:
		return "unknown validation error"
	}
}

// Validate reports every ValidationError present in r.
func (r *Record) Validate() []ValidationError {
	var errs []ValidationError

	if (r.Ref == nil || r.Pos == -1) && r.Flags&Unmapped == 0 {
		errs = append(errs, InvalidAlignmentStart)
	}
	if r.Flags&Paired != 0 && (r.MateRef == nil || r.MatePos == -1) && r.Flags&MateUnmapped == 0 {
		errs = append(errs, InvalidAlignmentStart)
	}

	if r.Flags&(Unmapped|ProperPair) == Unmapped|ProperPair {
		errs = append(errs, InvalidFlagProperPair)
	}
	if r.Flags&(Paired|MateUnmapped|ProperPair) == Paired|MateUnmapped|ProperPair {
		errs = append(errs, InvalidFlagProperPair)
	}

	if r.Flags&Unmapped != 0 && r.MapQ != 0 {
		errs = append(errs, InvalidMappingQuality)
	}

	if !validTmpltLen(r.TempLen) {
		errs = append(errs, InvalidInsertSize)
	}

	if r.Flags&Unmapped == 0 && r.Ref != nil && r.End() > r.Ref.Len() {
		errs = append(errs, CigarMapsOffReference)
	}

	if len(r.Qual) != 0 && r.Seq.Length != len(r.Qual) {
		errs = append(errs, MismatchReadLengthAndQualsLength)
	}

	return errs
}

// IsValidRecord reports whether r passes every validation check.
func IsValidRecord(r *Record) bool {
	return len(r.Validate()) == 0
}

const (
	wordBits = 31

	maxInt32 = int(int32(^uint32(0) >> 1))
	minInt32 = -int(maxInt32) - 1
)

func validInt32(i int) bool { return minInt32 <= i && i <= maxInt32 }

func validLen(i int) bool      { return 1 <= i && i <= 1<<wordBits-1 }
func validPos(i int) bool      { return -1 <= i && i <= (1<<wordBits-1)-1 } // 0-based.
func validTmpltLen(i int) bool { return -(1<<wordBits) <= i && i <= 1<<wordBits-1 }
