package df1

import "github.com/jvalenzuela/df1d/internal/checksum"

// EncodeFrame builds the on-wire bytes for an outgoing DF1 message: DLE
// STX, the DLE-stuffed application bytes, DLE ETX, and the trailing
// checksum. In CRC mode the checksum folds in the ETX
// byte before being finalized; in BCC mode it does not.
func EncodeFrame(app []byte, useCRC bool) []byte {
	out := make([]byte, 0, 2*len(app)+8)
	out = append(out, DLE, STX)

	var chk checksum.Checksum
	if useCRC {
		chk = checksum.NewCRC16()
	} else {
		chk = checksum.NewBCC()
	}

	for _, b := range app {
		chk.Update(b)
		if b == DLE {
			out = append(out, DLE, DLE)
		} else {
			out = append(out, b)
		}
	}

	if useCRC {
		chk.Update(ETX)
	}
	out = append(out, DLE, ETX)
	out = append(out, chk.Finalize()...)
	return out
}
