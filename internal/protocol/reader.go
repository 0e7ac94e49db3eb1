package protocol

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Source is the byte stream a frame is read from. *bufio.Reader and
// *bytes.Reader both satisfy it.
type Source interface {
	io.Reader
	io.ByteReader
}

// ReadPacket blocks until one full frame is available or the stream ends.
// io.EOF before the first byte means the peer closed cleanly; io.EOF or
// io.ErrUnexpectedEOF mid-frame also signal stream close and are returned
// unwrapped so callers can classify them. Every other error is a decode
// error and poisons the frame boundary for good.
func ReadPacket(r Source, dir Direction) (*Packet, error) {
	typ, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	size, sizeRaw, err := ReadSignedVLQ(r)
	if err != nil {
		return nil, err
	}

	compressed := size < 0
	declared := size
	if compressed {
		declared = -size
	}
	if declared > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes declared", ErrPacketTooLarge, declared)
	}

	raw := make([]byte, declared)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}

	payload := raw
	if compressed {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
		}
		payload, err = io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
		}
	}

	original := make([]byte, 0, 1+len(sizeRaw)+len(raw))
	original = append(original, typ)
	original = append(original, sizeRaw...)
	original = append(original, raw...)

	return &Packet{
		Type:       typ,
		Size:       declared,
		Compressed: compressed,
		Payload:    payload,
		Original:   original,
		Direction:  dir,
	}, nil
}
