// Package bin contains utilities for dealing with the host-order binary
// representation of 32-bit protocol words.
package bin

import (
	"encoding/binary"
	"io"
)

// Size is the size in bytes of a single protocol word.
const Size = 4

// Bytes returns the host-order representation of v.
func Bytes[T ~int32 | ~uint32](v T) (data [Size]byte) {
	binary.NativeEndian.PutUint32(data[:], uint32(v))
	return data
}

// Value interprets data as a host-order word.
func Value[T ~int32 | ~uint32](data [Size]byte) T {
	return T(binary.NativeEndian.Uint32(data[:]))
}

func Read[T ~int32 | ~uint32](r io.Reader) (T, error) {
	var data [Size]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

func Write[T ~int32 | ~uint32](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}

// Append appends the host-order representation of v to buf.
func Append[T ~int32 | ~uint32](buf []byte, v T) []byte {
	return binary.NativeEndian.AppendUint32(buf, uint32(v))
}
