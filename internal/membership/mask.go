package membership

import (
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// Mask is an immutable set of collection bits. The zero value is empty.
type Mask struct {
	rb *roaring.Bitmap
}

// NewMask returns a mask with the given bits set.
func NewMask(bits ...uint32) Mask {
	if len(bits) == 0 {
		return Mask{}
	}
	rb := roaring.New()
	rb.AddMany(bits)
	return Mask{rb: rb}
}

// Has reports whether bit is set.
func (m Mask) Has(bit uint32) bool {
	return m.rb != nil && m.rb.Contains(bit)
}

// IsEmpty reports whether no bit is set.
func (m Mask) IsEmpty() bool {
	return m.rb == nil || m.rb.IsEmpty()
}

// Len returns the number of bits set.
func (m Mask) Len() int {
	if m.rb == nil {
		return 0
	}
	return int(m.rb.GetCardinality())
}

// Intersects reports whether m and o share at least one bit (m & o != 0).
func (m Mask) Intersects(o Mask) bool {
	if m.IsEmpty() || o.IsEmpty() {
		return false
	}
	return m.rb.Intersects(o.rb)
}

// Bits returns the set bits in ascending order.
func (m Mask) Bits() []uint32 {
	if m.rb == nil {
		return []uint32{}
	}
	return m.rb.ToArray()
}

// Equal reports whether both masks have the same bits.
func (m Mask) Equal(o Mask) bool {
	if m.IsEmpty() || o.IsEmpty() {
		return m.IsEmpty() && o.IsEmpty()
	}
	return m.rb.Equals(o.rb)
}

// Uint64 returns the mask as an integer when every bit is below 64.
func (m Mask) Uint64() (uint64, bool) {
	if m.IsEmpty() {
		return 0, true
	}
	if m.rb.Maximum() >= 64 {
		return 0, false
	}
	var v uint64
	for _, b := range m.rb.ToArray() {
		v |= 1 << b
	}
	return v, true
}

func (m Mask) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, b := range m.Bits() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(b), 10))
	}
	sb.WriteByte('}')
	return sb.String()
}
