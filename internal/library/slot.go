package library

import "fmt"

const (
	// ProgramsPerBank is the number of slots in one bank.
	ProgramsPerBank = 128

	// BankCount is the number of banks in a collection.
	BankCount = 8

	// SlotCount is the number of addressable slots in a collection.
	SlotCount = ProgramsPerBank * BankCount

	// MaxSlot is the highest valid slot index.
	MaxSlot = SlotCount - 1

	bankShift   = 7
	programMask = ProgramsPerBank - 1
)

// Slot is a position 0..1023 within a collection.
type Slot int

// NoSlot marks an absent, unknown or unassigned slot.
const NoSlot Slot = -1

// SlotOf builds a slot from a bank and program number.
// It returns NoSlot when either part is out of range.
func SlotOf(bank, program int) Slot {
	if bank < 0 || bank >= BankCount || program < 0 || program >= ProgramsPerBank {
		return NoSlot
	}
	return Slot(bank<<bankShift | program)
}

// Valid reports whether s lies in [0, MaxSlot].
func (s Slot) Valid() bool {
	return s >= 0 && s <= MaxSlot
}

// Bank returns the bank number, or -1 for an invalid slot.
func (s Slot) Bank() int {
	if !s.Valid() {
		return -1
	}
	return int(s) >> bankShift
}

// Program returns the program number within the bank, or -1 for an invalid slot.
func (s Slot) Program() int {
	if !s.Valid() {
		return -1
	}
	return int(s) & programMask
}

// String renders the slot as bank letter plus program, e.g. "B017".
func (s Slot) String() string {
	if !s.Valid() {
		return "----"
	}
	return fmt.Sprintf("%c%03d", 'A'+rune(s.Bank()), s.Program())
}
