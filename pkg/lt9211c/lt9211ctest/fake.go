// Package lt9211ctest provides a register-file fake of the LT9211C for tests.
//
// Fake implements the lt9211c.Bus contract: a two-byte write sets a
// register in the currently selected bank, a write to 0xff switches banks,
// and a one-byte write followed by a read returns consecutive registers.
package lt9211ctest

import (
	"errors"
	"sync"
)

// ErrInjected is returned by Tx when a failure has been armed.
var ErrInjected = errors.New("lt9211ctest: injected bus failure")

const bankSelect = 0xff

// Access is one register write recorded by the fake.
type Access struct {
	Bank  uint8
	Addr  uint8
	Value uint8
}

// Fake is an in-memory LT9211C. The zero value is not usable; call New.
type Fake struct {
	mu       sync.Mutex
	bank     uint8
	regs     map[uint16]uint8
	scripts  map[uint16][]uint8
	writes   []Access
	txCount  int
	failFrom int
	OnTx     func(w, r []byte)
}

// New returns a fake with every register reading zero.
func New() *Fake {
	return &Fake{
		regs:     make(map[uint16]uint8),
		scripts:  make(map[uint16][]uint8),
		failFrom: -1,
	}
}

func key(bank, addr uint8) uint16 {
	return uint16(bank)<<8 | uint16(addr)
}

// Set stores a register value.
func (f *Fake) Set(bank, addr, value uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[key(bank, addr)] = value
}

// SetBytes stores consecutive registers starting at addr.
func (f *Fake) SetBytes(bank, addr uint8, values ...uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range values {
		f.regs[key(bank, addr+uint8(i))] = v
	}
}

// Script makes successive reads of (bank, addr) return values in order.
// The last value sticks once the script is drained. Scripted reads take
// precedence over stored values and writes do not disturb them.
func (f *Fake) Script(bank, addr uint8, values ...uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[key(bank, addr)] = append([]uint8(nil), values...)
}

// Get returns the last value written to or stored in a register.
func (f *Fake) Get(bank, addr uint8) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[key(bank, addr)]
}

// Writes returns every non bank-select write in order.
func (f *Fake) Writes() []Access {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Access(nil), f.writes...)
}

// WritesTo returns the values written to one register in order.
func (f *Fake) WritesTo(bank, addr uint8) []uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint8
	for _, a := range f.writes {
		if a.Bank == bank && a.Addr == addr {
			out = append(out, a.Value)
		}
	}
	return out
}

// TxCount returns the number of transactions seen, failed ones included.
func (f *Fake) TxCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txCount
}

// FailAfter makes every transaction after the next n fail with ErrInjected.
// A negative n disarms it.
func (f *Fake) FailAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < 0 {
		f.failFrom = -1
		return
	}
	f.failFrom = f.txCount + n
}

// Tx implements the bus contract.
func (f *Fake) Tx(w, r []byte) error {
	f.mu.Lock()
	hook := f.OnTx
	err := f.tx(w, r)
	f.mu.Unlock()

	if hook != nil {
		hook(w, r)
	}
	return err
}

func (f *Fake) tx(w, r []byte) error {
	f.txCount++
	if f.failFrom >= 0 && f.txCount > f.failFrom {
		return ErrInjected
	}
	if len(w) == 0 {
		return errors.New("lt9211ctest: empty write")
	}

	if len(r) == 0 {
		if len(w) != 2 {
			return errors.New("lt9211ctest: register write must be two bytes")
		}
		if w[0] == bankSelect {
			f.bank = w[1]
			return nil
		}
		f.regs[key(f.bank, w[0])] = w[1]
		f.writes = append(f.writes, Access{Bank: f.bank, Addr: w[0], Value: w[1]})
		return nil
	}

	for i := range r {
		r[i] = f.read(f.bank, w[0]+uint8(i))
	}
	return nil
}

func (f *Fake) read(bank, addr uint8) uint8 {
	k := key(bank, addr)
	if s, ok := f.scripts[k]; ok && len(s) > 0 {
		v := s[0]
		if len(s) > 1 {
			f.scripts[k] = s[1:]
		}
		return v
	}
	return f.regs[k]
}
