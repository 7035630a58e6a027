package view

import (
	"sort"

	"github.com/roach88/patchlib/internal/library"
	"github.com/roach88/patchlib/internal/membership"
)

// Row is the aggregate projection of one sound.
type Row struct {
	UID        library.UID
	Membership membership.Mask
	Name       string // space-padded to library.NameWidth
	Category   library.Category
	Tags       []string // sorted, de-duplicated
}

// DisplayName returns the name without padding.
func (r Row) DisplayName() string {
	return library.TrimName(r.Name)
}

// HasTags reports whether r carries every tag in required.
// required must be sorted; an empty set is always satisfied.
func (r Row) HasTags(required []string) bool {
	if len(required) > len(r.Tags) {
		return false
	}
	j := 0
	for _, want := range required {
		j += sort.SearchStrings(r.Tags[j:], want)
		if j >= len(r.Tags) || r.Tags[j] != want {
			return false
		}
		j++
	}
	return true
}

// FirstTag returns the lowest tag in sort order, or "" for an untagged row.
func (r Row) FirstTag() string {
	if len(r.Tags) == 0 {
		return ""
	}
	return r.Tags[0]
}

func rowFromSound(s library.Sound, mask membership.Mask) Row {
	return Row{
		UID:        s.UID,
		Membership: mask,
		Name:       library.PadName(s.Name),
		Category:   s.Category,
		Tags:       library.NormalizeTags(s.Tags),
	}
}
