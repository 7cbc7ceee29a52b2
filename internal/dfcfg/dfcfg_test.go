package dfcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvalenzuela/df1d/internal/df1"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "df1d.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `
connections:
  - name: plc5
    device: /dev/ttyS0
    baud: 9600
    checksum: crc
    duplex: full
    port: 5150
    max_nak: 2
    max_enq: 3
    dup_detect: true
    ack_timeout_ms: 200
  - name: slc500
    device: /dev/ttyS1
    baud: 19200
    checksum: bcc
    duplex: full
    port: 5151
    max_nak: 1
    max_enq: 1
    dup_detect: false
    ack_timeout_ms: 500
`

func TestLoad(t *testing.T) {
	conns, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.Len(t, conns, 2)

	assert.Equal(t, "plc5", conns[0].Name)
	assert.Equal(t, "/dev/ttyS0", conns[0].Device)
	assert.Equal(t, 9600, conns[0].Baud)
	assert.Equal(t, 5150, conns[0].Port)

	cfg := conns[0].ToDF1()
	assert.True(t, cfg.UseCRC)
	assert.Equal(t, df1.DuplexFull, cfg.Duplex)
	assert.Equal(t, 2, cfg.TxMaxNak)
	assert.Equal(t, 3, cfg.TxMaxEnq)
	assert.True(t, cfg.RxDupDetect)
	assert.Equal(t, 200, cfg.AckTimeoutMS)

	assert.False(t, conns[1].ToDF1().UseCRC)
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty document", `connections: []`},
		{"bad baud", `
connections:
  - {name: a, device: /dev/ttyS0, baud: 4800, checksum: crc, duplex: full, port: 1, max_nak: 1, max_enq: 1, ack_timeout_ms: 100}
`},
		{"bad checksum", `
connections:
  - {name: a, device: /dev/ttyS0, baud: 9600, checksum: xor, duplex: full, port: 1, max_nak: 1, max_enq: 1, ack_timeout_ms: 100}
`},
		{"bad duplex", `
connections:
  - {name: a, device: /dev/ttyS0, baud: 9600, checksum: crc, duplex: both, port: 1, max_nak: 1, max_enq: 1, ack_timeout_ms: 100}
`},
		{"missing device", `
connections:
  - {name: a, baud: 9600, checksum: crc, duplex: full, port: 1, max_nak: 1, max_enq: 1, ack_timeout_ms: 100}
`},
		{"port out of range", `
connections:
  - {name: a, device: /dev/ttyS0, baud: 9600, checksum: crc, duplex: full, port: 70000, max_nak: 1, max_enq: 1, ack_timeout_ms: 100}
`},
		{"name too long", `
connections:
  - {name: a-name-that-goes-on-forever, device: /dev/ttyS0, baud: 9600, checksum: crc, duplex: full, port: 1, max_nak: 1, max_enq: 1, ack_timeout_ms: 100}
`},
		{"zero ack timeout", `
connections:
  - {name: a, device: /dev/ttyS0, baud: 9600, checksum: crc, duplex: full, port: 1, max_nak: 1, max_enq: 1, ack_timeout_ms: 0}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadAcceptsHalfDuplexModes(t *testing.T) {
	// MASTER and SLAVE are accepted by the configuration even though
	// the engine currently drives them as full duplex.
	body := `
connections:
  - {name: a, device: /dev/ttyS0, baud: 9600, checksum: crc, duplex: master, port: 1, max_nak: 1, max_enq: 1, ack_timeout_ms: 100}
  - {name: b, device: /dev/ttyS1, baud: 9600, checksum: crc, duplex: slave, port: 2, max_nak: 1, max_enq: 1, ack_timeout_ms: 100}
`
	conns, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, df1.DuplexMaster, conns[0].ToDF1().Duplex)
	assert.Equal(t, df1.DuplexSlave, conns[1].ToDF1().Duplex)
}
