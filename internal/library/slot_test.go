package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotArithmetic(t *testing.T) {
	tests := []struct {
		slot    Slot
		bank    int
		program int
		str     string
	}{
		{0, 0, 0, "A000"},
		{127, 0, 127, "A127"},
		{128, 1, 0, "B000"},
		{145, 1, 17, "B017"},
		{1023, 7, 127, "H127"},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.True(t, tt.slot.Valid())
			assert.Equal(t, tt.bank, tt.slot.Bank())
			assert.Equal(t, tt.program, tt.slot.Program())
			assert.Equal(t, tt.str, tt.slot.String())
			assert.Equal(t, tt.slot, SlotOf(tt.bank, tt.program))
		})
	}
}

func TestSlotInvalid(t *testing.T) {
	for _, s := range []Slot{NoSlot, -5, 1024, 5000} {
		assert.False(t, s.Valid(), "slot %d", int(s))
		assert.Equal(t, -1, s.Bank())
		assert.Equal(t, -1, s.Program())
		assert.Equal(t, "----", s.String())
	}
	assert.Equal(t, NoSlot, SlotOf(8, 0))
	assert.Equal(t, NoSlot, SlotOf(0, 128))
	assert.Equal(t, NoSlot, SlotOf(-1, 0))
}
