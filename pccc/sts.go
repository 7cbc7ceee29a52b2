package pccc

import "fmt"

// stsCheck classifies a reply's STS byte. A zero STS is success; the
// low codes are errors raised by the local interface, the high-nibble
// codes by the remote node, and 0xf0 signals an extended status byte in
// the data area whose meaning depends on the originating CMD.
func stsCheck(raw []byte) error {
	sts := msgSTS(raw)
	if sts == 0 {
		return nil
	}
	var desc string
	remote := false
	switch sts {
	case 0x01:
		desc = "Destination node is out of buffer space"
	case 0x02:
		desc = "Cannot guarantee delivery, link layer"
	case 0x03:
		desc = "Duplicate token holder detected"
	case 0x04:
		desc = "Local port is disconnected"
	case 0x05:
		desc = "Application layer timed out waiting for response"
	case 0x06:
		desc = "Duplicate node detected"
	case 0x07:
		desc = "Station is offline"
	case 0x08:
		desc = "Hardware fault"
	case 0x10:
		desc = "Illegal command or format"
		remote = true
	case 0x20:
		desc = "Host has a problem and will not communicate"
		remote = true
	case 0x30:
		desc = "Remote node host is missing, disconnected, or shut down"
		remote = true
	case 0x40:
		desc = "Host could not complete function due to hardware fault"
		remote = true
	case 0x50:
		desc = "Addressing problem or memory protect rungs"
		remote = true
	case 0x60:
		desc = "Function not allowed due to command protection selection"
		remote = true
	case 0x70:
		desc = "Processor is in program mode"
		remote = true
	case 0x80:
		desc = "Compatibility mode file missing or communication zone problem"
		remote = true
	case 0x90:
		desc = "Remote node cannot buffer command"
		remote = true
	case 0xa0, 0xc0:
		desc = "Wait ACK"
		remote = true
	case 0xb0:
		desc = "Remote node problem due to download"
		remote = true
	case 0xf0:
		desc = extSts(raw)
		remote = true
	default:
		desc = fmt.Sprintf("Undefined STS 0x%x", sts)
	}
	origin := "Local"
	if remote {
		origin = "Remote"
	}
	return fmt.Errorf("%s node %d error: %s", origin, msgSrc(raw), desc)
}

// extSts describes an extended status byte, routed on the originating
// CMD value: 0x0f carries the DH/DH+ table, 0x0b/0x1a/0x1b the DH485
// table. Other commands shouldn't return EXT STS values at all.
func extSts(raw []byte) string {
	cmd := msgCmd(raw)
	if len(raw) <= replyHeaderLen {
		return fmt.Sprintf("CMD 0x%x signalled EXT STS but none present", cmd)
	}
	es := raw[replyHeaderLen]
	switch cmd {
	case 0x0f:
		return extStsDH(raw, es)
	case 0x0b, 0x1a, 0x1b:
		return extSts485(raw, es, cmd)
	}
	return fmt.Sprintf("CMD 0x%x returned unexpected EXT STS 0x%x", cmd, es)
}

var extStsDHTable = map[byte]string{
	0x01: "A field has an illegal value",
	0x02: "Less levels specified in address than minimum for any address",
	0x03: "More levels specified in address than system supports",
	0x04: "Symbol not found",
	0x05: "Symbol is of improper format",
	0x06: "Address doesn't point to something usable",
	0x07: "File is wrong size",
	0x08: "Cannot complete request, situation has changed since start of the command",
	0x09: "Data or file is too large",
	0x0a: "Transaction size plus word address is too large",
	0x0b: "Access denied, improper privilege",
	0x0c: "Condition cannot be generated, resource is not available",
	0x0d: "Condition already exists, resource is already available",
	0x0e: "Command cannot be executed",
	0x0f: "Histogram overflow",
	0x10: "No access",
	0x11: "Illegal data type",
	0x12: "Invalid parameter or invalid data",
	0x13: "Address reference exists to deleted area",
	0x14: "Command execution failure for unknown reason",
	0x15: "Data conversion error",
	0x16: "Scanner not able to communicate with 1771 rack adapter",
	0x17: "Type mismatch",
	0x18: "1771 module response was not valid",
	0x19: "Duplicate label",
	0x1e: "Data table element protection violation",
	0x1f: "Temporary internal problem",
	0x22: "Remote rack fault",
	0x23: "Timeout",
	0x24: "Unknown error",
}

// extStsDH describes an EXT STS code for CMD 0x0f.
func extStsDH(raw []byte, es byte) string {
	switch es {
	case 0x1a:
		return extStsFileOwner(raw)
	case 0x1b:
		return extStsProgramOwner(raw)
	}
	if desc, ok := extStsDHTable[es]; ok {
		return desc
	}
	return fmt.Sprintf("Undefined EXT STS 0x%x for CMD 0x0f", es)
}

var extSts485Table = map[byte]string{
	0x07: "Insufficient memory module size",
	0x0b: "Access denied, privilege violation",
	0x0c: "Resource not available or cannot do",
	0x0e: "CMD cannot be executed",
	0x12: "Invalid parameter",
	0x14: "Failure during processing",
	0x19: "Duplicate label",
}

// extSts485 describes an EXT STS code for CMDs 0x0b, 0x1a, and 0x1b.
func extSts485(raw []byte, es, cmd byte) string {
	switch es {
	case 0x1a:
		return extStsFileOwner(raw)
	case 0x1b:
		return extStsProgramOwner(raw)
	}
	if desc, ok := extSts485Table[es]; ok {
		return desc
	}
	return fmt.Sprintf("Undefined EXT STS 0x%x for CMD 0x%x", es, cmd)
}

// ownerNode extracts the optional owner node byte carried after the
// EXT STS by codes 0x1a and 0x1b.
func ownerNode(raw []byte) (byte, bool) {
	if len(raw) <= replyHeaderLen+1 {
		return 0, false
	}
	return raw[replyHeaderLen+1], true
}

func extStsFileOwner(raw []byte) string {
	if on, ok := ownerNode(raw); ok {
		return fmt.Sprintf("File is open; node %d owns it. For SLC 5/05 node 256 indicates the Ethernet port", on)
	}
	return "File is open; another node owns it"
}

func extStsProgramOwner(raw []byte) string {
	if on, ok := ownerNode(raw); ok {
		return fmt.Sprintf("Node %d is the program owner. For SLC 5/05 node 256 indicates the Ethernet port", on)
	}
	return "Another node is the program owner"
}
