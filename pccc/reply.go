package pccc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jvalenzuela/df1d/internal/buf"
	"github.com/jvalenzuela/df1d/pccc/data"
)

// replyEcho compares the echoed data against the original.
func replyEcho(rply *buf.Buf, cmd *message) error {
	got := rply.Unread()
	if len(got) != cmd.bytes {
		return errors.New("number of received bytes doesn't match number of bytes sent")
	}
	if !bytes.Equal(got, cmd.udata.([]byte)) {
		return errors.New("received data mismatch")
	}
	return nil
}

// replyProtectedTypedLogicalRead decodes the reply data into the
// command's element slice.
func replyProtectedTypedLogicalRead(rply *buf.Buf, cmd *message) error {
	if rply.Len()-replyHeaderLen != cmd.bytes {
		return errors.New("received unexpected amount of data")
	}
	return data.DecodeArray(rply, cmd.fileType, cmd.udata)
}

// replyReadSLCFileInfo decodes the file size, element count, and file
// type byte into the command's SLCFileInfo.
func replyReadSLCFileInfo(rply *buf.Buf, cmd *message) error {
	if rply.Len()-replyHeaderLen != 8 {
		return errors.New("received unexpected amount of data")
	}
	fi := cmd.udata.(*SLCFileInfo)
	size, err := rply.GetU32LE()
	if err != nil {
		return err
	}
	elements, err := rply.GetU16LE()
	if err != nil {
		return err
	}
	if _, err := rply.GetByte(); err != nil { // reserved
		return err
	}
	dt, err := rply.GetByte()
	if err != nil {
		return err
	}
	ft, ok := data.FileTypeFromByte(dt)
	if !ok {
		return fmt.Errorf("received unknown file type %#x", dt)
	}
	fi.Bytes = int(size)
	fi.Elements = int(elements)
	fi.Type = ft
	return nil
}

// replyReadLinkParam stores the single returned parameter byte.
func replyReadLinkParam(rply *buf.Buf, cmd *message) error {
	if rply.Len()-replyHeaderLen != 1 {
		return errors.New("received unexpected amount of data")
	}
	v, err := rply.GetByte()
	if err != nil {
		return err
	}
	*(cmd.udata.(*uint8)) = v
	return nil
}
