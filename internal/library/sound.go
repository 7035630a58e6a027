package library

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NameWidth is the fixed display width of a sound name.
const NameWidth = 16

// UID identifies a sound. It is allocated by the record source.
type UID int64

// Category is the small enumerated sound category, 0..CategoryCount-1.
type Category int

// CategoryCount is the number of defined categories.
const CategoryCount = 13

var categoryNames = [CategoryCount]string{
	"Arp", "Bass", "Bell", "Brass", "Drum", "FX", "Keys",
	"Lead", "Organ", "Pad", "Pluck", "Strings", "Voice",
}

// Valid reports whether c is a defined category.
func (c Category) Valid() bool {
	return c >= 0 && c < CategoryCount
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory resolves a category by name (case-insensitive) or number.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for i, name := range categoryNames {
		if strings.EqualFold(name, s) {
			return Category(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Category(n).Valid() {
		return Category(n), nil
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// Sound is the projection of a patch record consumed by the index.
// Name is stored space-padded to NameWidth.
type Sound struct {
	UID      UID
	Name     string
	Category Category
	Tags     []string
}

// DisplayName returns the name without its padding.
func (s Sound) DisplayName() string {
	return TrimName(s.Name)
}

// PadName NFC-normalises name and pads or truncates it to NameWidth runes.
func PadName(name string) string {
	r := []rune(norm.NFC.String(name))
	if len(r) > NameWidth {
		r = r[:NameWidth]
	}
	out := string(r)
	if pad := NameWidth - len(r); pad > 0 {
		out += strings.Repeat(" ", pad)
	}
	return out
}

// TrimName strips the padding added by PadName.
func TrimName(name string) string {
	return strings.TrimRight(name, " \x00")
}

// NormalizeTags returns a sorted, de-duplicated, NFC-normalised copy of tags.
// Empty tags are dropped. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = norm.NFC.String(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
