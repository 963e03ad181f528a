// Package lt9211c drives a Lontium LT9211C MIPI-DSI to LVDS bridge over I2C.
//
// The chip exposes an 8-bit register space split into banks. Register 0xff
// selects the active bank and every other address is interpreted relative to
// it, so the same address means different things in different banks. Regmap
// models this with (bank, address) pairs and writes the bank selector before
// every access.
//
// The package is split by concern:
//
//	regmap.go  - bank-switched register transport over any Tx-capable bus
//	timing.go  - supported video timings and mode lookup
//	detect.go  - incoming DSI stream measurement (word count, lines, format)
//	clock.go   - dessc-PLL/PCR and LVDS TX PLL divider math
//	rx.go      - MIPI RX register programming
//	tx.go      - LVDS TX register programming
//
// Sequencing these steps into a working link is left to the caller; see
// internal/bridge for the stage controller used by the daemon.
//
// # Usage
//
//	bus, _ := i2creg.Open("")
//	chip := lt9211c.New(&i2c.Dev{Addr: lt9211c.DefaultAddress, Bus: bus}, logger)
//	desc, err := chip.DetectRx()
//	if errors.Is(err, lt9211c.ErrNoVideo) {
//		// source not streaming yet, try again later
//	}
package lt9211c
