package df1

import (
	"fmt"

	"github.com/pkg/term"
)

// baudRates enumerates the configuration's accepted serial speeds.
var baudRates = map[int]bool{
	110: true, 300: true, 600: true, 1200: true, 2400: true,
	9600: true, 19200: true, 38400: true,
}

// ValidBaud reports whether baud is one of the configuration's accepted
// rates.
func ValidBaud(baud int) bool {
	return baudRates[baud]
}

// OpenSerial opens device in raw mode at the given baud rate: no parity,
// no local echo, reads return as soon as one byte is available. TTY
// setup is an external collaborator to the engine proper; raw mode plus
// an explicit speed is the same setup the serial KISS port uses.
func OpenSerial(device string, baud int) (*term.Term, error) {
	if !ValidBaud(baud) {
		return nil, fmt.Errorf("df1: unsupported baud rate %d", baud)
	}
	t, err := term.Open(device, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("df1: open %s: %w", device, err)
	}
	return t, nil
}
