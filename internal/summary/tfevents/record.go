// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package tfevents

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

const (
	maskDelta = 0xa282ead8

	// maxRecordLength bounds the payload size accepted when reading. Event records written by
	// this package are a few hundred bytes.
	maxRecordLength = 64 << 20
)

var (
	castagnoli = crc32.MakeTable(crc32.Castagnoli)

	// ErrCorruptRecord reports a record whose checksum does not match its content.
	ErrCorruptRecord = errors.New("corrupt record")
)

func maskedCRC(data []byte) uint32 {
	crc := crc32.Checksum(data, castagnoli)
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// writeRecord frames payload as a TFRecord:
// uint64 length, uint32 masked crc of length, payload, uint32 masked crc of payload.
func writeRecord(w io.Writer, payload []byte) error {
	header := make([]byte, 12)
	binary.LittleEndian.PutUint64(header[:8], uint64(len(payload)))
	binary.LittleEndian.PutUint32(header[8:], maskedCRC(header[:8]))

	footer := make([]byte, 4)
	binary.LittleEndian.PutUint32(footer, maskedCRC(payload))

	for _, chunk := range [][]byte{header, payload, footer} {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// readRecord returns the next payload of r, or io.EOF when r ends cleanly on a record boundary.
func readRecord(r io.Reader) ([]byte, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated header", ErrCorruptRecord)
		}
		return nil, err
	}

	if binary.LittleEndian.Uint32(header[8:]) != maskedCRC(header[:8]) {
		return nil, fmt.Errorf("%w: length checksum mismatch", ErrCorruptRecord)
	}

	length := binary.LittleEndian.Uint64(header[:8])
	if length > maxRecordLength {
		return nil, fmt.Errorf("%w: record length %d exceeds %d bytes", ErrCorruptRecord, length, maxRecordLength)
	}

	body := make([]byte, length+4)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: truncated payload: %w", ErrCorruptRecord, err)
	}

	payload := body[:length]
	if binary.LittleEndian.Uint32(body[length:]) != maskedCRC(payload) {
		return nil, fmt.Errorf("%w: payload checksum mismatch", ErrCorruptRecord)
	}
	return payload, nil
}
