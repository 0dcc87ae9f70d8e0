// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package binary implements the video feed's framed/compressed
// binary wire protocol (spec §4.D): each logical message is a pair
// (ActionFrame, DataFrame), each frame preceded by an 8-byte header.
package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zlib"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
)

// Kind is the packet-kind byte (header byte 0).
type Kind byte

const (
	KindAction  Kind = 1
	KindPayload Kind = 2
)

// Format is the payload-format byte (header byte 1).
type Format byte

const (
	FormatJSON  Format = 1
	FormatText  Format = 2
	FormatBytes Format = 3
)

const headerSize = 8

// MaxFrameLength caps a single frame's declared payload length,
// bounding memory use and giving the decoder a hard resync trigger
// for corrupt streams (spec §4.D).
const MaxFrameLength = 32 * 1024 * 1024

// Header is the decoded 8-byte frame header.
type Header struct {
	Kind       Kind
	Format     Format
	Compressed bool
	Length     uint32
}

// readHeader parses and validates the 8-byte frame header. Any
// violation (non-zero reserved byte, unknown kind/format, an
// over-length declaration) is a ProtocolViolation: the caller must
// close the channel rather than attempt to resynchronise mid-stream
// (spec §4.D, §7).
func readHeader(r io.Reader) (Header, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, apperrors.TransientNetwork(err)
	}

	kind := Kind(raw[0])
	format := Format(raw[1])
	compressedByte := raw[2]
	reserved := raw[3]
	length := binary.BigEndian.Uint32(raw[4:8])

	if reserved != 0 {
		return Header{}, apperrors.ProtocolViolation(fmt.Sprintf("reserved byte %d must be 0", reserved))
	}
	if kind != KindAction && kind != KindPayload {
		return Header{}, apperrors.ProtocolViolation(fmt.Sprintf("unknown packet kind %d", kind))
	}
	if format != FormatJSON && format != FormatText && format != FormatBytes {
		return Header{}, apperrors.ProtocolViolation(fmt.Sprintf("unknown format %d", format))
	}
	if compressedByte != 0 && compressedByte != 1 {
		return Header{}, apperrors.ProtocolViolation(fmt.Sprintf("invalid compressed flag %d", compressedByte))
	}
	if length > MaxFrameLength {
		return Header{}, apperrors.ProtocolViolation(fmt.Sprintf("frame length %d exceeds cap %d", length, MaxFrameLength))
	}

	return Header{Kind: kind, Format: format, Compressed: compressedByte == 1, Length: length}, nil
}

// Frame is one decoded wire frame: a header plus its (already
// inflated, if needed) body.
type Frame struct {
	Header Header
	Body   []byte
}

// readFrame reads one complete frame (header + body, inflating if
// the compressed flag is set).
func readFrame(r io.Reader) (Frame, error) {
	h, err := readHeader(r)
	if err != nil {
		return Frame{}, err
	}

	body := make([]byte, h.Length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, apperrors.TransientNetwork(err)
	}

	if h.Compressed {
		inflated, err := inflate(body)
		if err != nil {
			return Frame{}, apperrors.ProtocolViolation("inflate failed: " + err.Error())
		}
		body = inflated
	}

	return Frame{Header: h, Body: body}, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	out, err := io.ReadAll(io.LimitReader(zr, MaxFrameLength))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ActionFrame describes the subject, update id, and verb of an
// upcoming DataFrame (spec §4.D).
type ActionFrame struct {
	Subject  string `json:"subject"`
	UpdateID string `json:"id"`
	Action   string `json:"action"`
}

// decodeAction decodes a Frame of KindAction into an ActionFrame. A
// non-JSON action frame is treated as best-effort: its raw text is
// placed in Action with the other fields left empty.
func decodeAction(f Frame) (ActionFrame, error) {
	if f.Header.Kind != KindAction {
		return ActionFrame{}, apperrors.ProtocolViolation("expected action frame")
	}
	switch f.Header.Format {
	case FormatJSON:
		var a ActionFrame
		if err := json.Unmarshal(f.Body, &a); err != nil {
			return ActionFrame{}, apperrors.ProtocolViolation("malformed action JSON: " + err.Error())
		}
		return a, nil
	default:
		return ActionFrame{Action: string(f.Body)}, nil
	}
}

// Message is one logical (action, payload) pair.
type Message struct {
	Action      ActionFrame
	DataFormat  Format
	DataPayload []byte
}

// readMessage reads one (ActionFrame, DataFrame) pair.
func readMessage(r io.Reader) (Message, error) {
	actionFrame, err := readFrame(r)
	if err != nil {
		return Message{}, err
	}
	action, err := decodeAction(actionFrame)
	if err != nil {
		return Message{}, err
	}

	dataFrame, err := readFrame(r)
	if err != nil {
		return Message{}, err
	}
	if dataFrame.Header.Kind != KindPayload {
		return Message{}, apperrors.ProtocolViolation("expected payload frame after action frame")
	}

	return Message{
		Action:      action,
		DataFormat:  dataFrame.Header.Format,
		DataPayload: dataFrame.Body,
	}, nil
}
