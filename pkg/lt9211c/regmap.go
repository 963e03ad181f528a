package lt9211c

import (
	"sync"
	"sync/atomic"
)

// DefaultAddress is the 7-bit I2C address the LT9211C answers on with its
// address strap pulled low.
const DefaultAddress = 0x2d

// regBankSelect selects the bank every other address is resolved against.
const regBankSelect = 0xff

// Bus is a register-addressed half-duplex transport. *i2c.Dev from
// periph.io/x/conn/v3/i2c satisfies it.
type Bus interface {
	Tx(w, r []byte) error
}

// RegValue is one entry of a write sequence.
type RegValue struct {
	Addr  uint8
	Value uint8
}

// Regmap issues bank-qualified register accesses. It never caches: every call
// selects its bank and then touches the hardware. It is not safe for
// concurrent use beyond Close racing a single caller.
type Regmap struct {
	bus      Bus
	mu       sync.Mutex
	closed   bool
	accesses atomic.Uint64
}

// NewRegmap wraps bus.
func NewRegmap(bus Bus) *Regmap {
	return &Regmap{bus: bus}
}

// Accesses returns the number of bus transactions issued so far.
func (m *Regmap) Accesses() uint64 {
	return m.accesses.Load()
}

// Close detaches the map from the bus. Later calls fail with ErrDetached.
func (m *Regmap) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Write sets one register.
func (m *Regmap) Write(bank, addr, value uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.selectBank(bank); err != nil {
		return err
	}
	return m.tx("write", bank, addr, []byte{addr, value}, nil)
}

// WriteSequence writes seq in order after selecting bank once. Repeated
// addresses are all issued; the chip uses this for reset pulses.
func (m *Regmap) WriteSequence(bank uint8, seq []RegValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.selectBank(bank); err != nil {
		return err
	}
	for _, rv := range seq {
		if err := m.tx("write", bank, rv.Addr, []byte{rv.Addr, rv.Value}, nil); err != nil {
			return err
		}
	}
	return nil
}

// Read returns one register.
func (m *Regmap) Read(bank, addr uint8) (byte, error) {
	buf, err := m.ReadBulk(bank, addr, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadBulk reads count consecutive registers starting at addr.
func (m *Regmap) ReadBulk(bank, addr uint8, count int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.selectBank(bank); err != nil {
		return nil, err
	}
	buf := make([]byte, count)
	if err := m.tx("read", bank, addr, []byte{addr}, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// UpdateBits reads addr, clears the bits in clear, sets the bits in set and
// writes the result back.
func (m *Regmap) UpdateBits(bank, addr, clear, set uint8) error {
	v, err := m.Read(bank, addr)
	if err != nil {
		return err
	}
	return m.Write(bank, addr, (v&^clear)|set)
}

func (m *Regmap) selectBank(bank uint8) error {
	return m.tx("select", bank, regBankSelect, []byte{regBankSelect, bank}, nil)
}

func (m *Regmap) tx(op string, bank, addr uint8, w, r []byte) error {
	if m.closed {
		return ErrDetached
	}
	m.accesses.Add(1)
	if err := m.bus.Tx(w, r); err != nil {
		return &TransportError{Op: op, Bank: bank, Addr: addr, Err: err}
	}
	return nil
}
