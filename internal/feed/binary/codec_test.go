// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package binary

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"
)

func writeFrame(buf *bytes.Buffer, kind Kind, format Format, compressed bool, body []byte) {
	if compressed {
		var zbuf bytes.Buffer
		zw := zlib.NewWriter(&zbuf)
		_, _ = zw.Write(body)
		_ = zw.Close()
		body = zbuf.Bytes()
	}

	var header [8]byte
	header[0] = byte(kind)
	header[1] = byte(format)
	if compressed {
		header[2] = 1
	}
	binary.BigEndian.PutUint32(header[4:8], uint32(len(body)))

	buf.Write(header[:])
	buf.Write(body)
}

func TestReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writeFrame(&buf, KindAction, FormatJSON, false, []byte(`{"subject":"camera1","id":"u100","action":"update"}`))
	writeFrame(&buf, KindPayload, FormatJSON, true, []byte(`{"motionScore":80}`))

	msg, err := readMessage(&buf)
	if err != nil {
		t.Fatalf("readMessage: %v", err)
	}
	if msg.Action.Subject != "camera1" || msg.Action.UpdateID != "u100" || msg.Action.Action != "update" {
		t.Fatalf("action frame decoded wrong: %+v", msg.Action)
	}
	if string(msg.DataPayload) != `{"motionScore":80}` {
		t.Fatalf("data payload = %s", msg.DataPayload)
	}
}

func TestReadHeaderRejectsReservedByte(t *testing.T) {
	var buf bytes.Buffer
	header := [8]byte{1, 1, 0, 1, 0, 0, 0, 0} // reserved byte set to 1
	buf.Write(header[:])

	_, err := readHeader(&buf)
	if err == nil {
		t.Fatalf("expected protocol violation for non-zero reserved byte")
	}
}

func TestReadHeaderRejectsUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	header := [8]byte{9, 1, 0, 0, 0, 0, 0, 0}
	buf.Write(header[:])

	_, err := readHeader(&buf)
	if err == nil {
		t.Fatalf("expected protocol violation for unknown kind")
	}
}

func TestReadHeaderRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	header := [8]byte{1, 9, 0, 0, 0, 0, 0, 0}
	buf.Write(header[:])

	_, err := readHeader(&buf)
	if err == nil {
		t.Fatalf("expected protocol violation for unknown format")
	}
}

func TestReadHeaderRejectsOverLengthFrame(t *testing.T) {
	var buf bytes.Buffer
	header := [8]byte{1, 1, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(header[:])

	_, err := readHeader(&buf)
	if err == nil {
		t.Fatalf("expected protocol violation for over-length frame")
	}
}

func TestReadFrameInflateFailure(t *testing.T) {
	var buf bytes.Buffer
	// compressed=1 but the body is not valid zlib.
	var header [8]byte
	header[0] = byte(KindPayload)
	header[1] = byte(FormatBytes)
	header[2] = 1
	binary.BigEndian.PutUint32(header[4:8], 4)
	buf.Write(header[:])
	buf.Write([]byte("nope"))

	_, err := readFrame(&buf)
	if err == nil {
		t.Fatalf("expected inflate failure to be a protocol violation")
	}
}

func TestReadMessageUnexpectedKindSequence(t *testing.T) {
	var buf bytes.Buffer
	// Two action frames in a row instead of action+payload.
	writeFrame(&buf, KindAction, FormatJSON, false, []byte(`{"subject":"s","id":"1","action":"update"}`))
	writeFrame(&buf, KindAction, FormatJSON, false, []byte(`{"subject":"s","id":"2","action":"update"}`))

	_, err := readMessage(&buf)
	if err == nil {
		t.Fatalf("expected protocol violation for action-action sequence")
	}
}
