package protocol

import "io"

// maxVLQLen bounds a VLQ to what a 64-bit value can occupy.
const maxVLQLen = 10

// ReadVLQ reads an unsigned base-128 VLQ: seven value bits per byte, most
// significant group first, continuation bit set on every byte except the
// last. Returns the value together with the raw bytes consumed.
func ReadVLQ(r io.ByteReader) (uint64, []byte, error) {
	var v uint64
	raw := make([]byte, 0, 2)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, raw, err
		}
		raw = append(raw, b)
		if len(raw) > maxVLQLen {
			return 0, raw, ErrVLQTooLong
		}
		v = v<<7 | uint64(b&0x7f)
		if b&0x80 == 0 {
			return v, raw, nil
		}
	}
}

// ReadSignedVLQ decodes the protocol's signed variant. The sign lives in
// the lowest bit of the unsigned value: even u is u>>1, odd u is -((u>>1)+1).
func ReadSignedVLQ(r io.ByteReader) (int64, []byte, error) {
	u, raw, err := ReadVLQ(r)
	if err != nil {
		return 0, raw, err
	}
	if u&1 == 0 {
		return int64(u >> 1), raw, nil
	}
	return -int64(u>>1) - 1, raw, nil
}

// AppendVLQ appends the unsigned VLQ encoding of v to dst.
func AppendVLQ(dst []byte, v uint64) []byte {
	var tmp [maxVLQLen]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7f)
	v >>= 7
	for v > 0 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	return append(dst, tmp[i:]...)
}

// AppendSignedVLQ appends the signed encoding, the exact inverse of
// ReadSignedVLQ.
func AppendSignedVLQ(dst []byte, v int64) []byte {
	var u uint64
	if v < 0 {
		u = uint64(-(v+1))<<1 | 1
	} else {
		u = uint64(v) << 1
	}
	return AppendVLQ(dst, u)
}
