// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains protocol plumbing shared by sensor drivers: the
// CRC8 checksum used by Sensirion devices and the decoding of
// checksum-framed response buffers.
package common

import (
	"errors"
	"fmt"
)

// ErrChecksum is returned when a received word does not match its checksum
// byte. Use errors.Is to tell checksum failures apart from bus transport
// errors.
var ErrChecksum = errors.New("crc8 checksum mismatch")

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. CRC bytes are used in sensors from TI and Sensirion.
// Polynomial 0x31, initial value 0xff, no reflection, no final xor.
func CRC8(bytes []byte) byte {
	var crc byte = 0xff
	for _, val := range bytes {
		crc ^= val
		for i := 0; i < 8; i++ {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (byte)((crc << 1) ^ 0x31)
			}
		}
	}
	return crc
}

// DecodeWords converts a response buffer of [high, low, crc] triples into
// wordCount big-endian words, validating the checksum of every triple in
// order. The first mismatch aborts the decode and no partial result is
// returned. A buffer shorter than 3*wordCount is a framing error, reported
// before any checksum runs.
func DecodeWords(buf []byte, wordCount int) ([]uint16, error) {
	if len(buf) < wordCount*3 {
		return nil, fmt.Errorf("short frame: %d bytes, expected %d", len(buf), wordCount*3)
	}
	words := make([]uint16, wordCount)
	for ix := range words {
		if CRC8(buf[ix*3:ix*3+2]) != buf[ix*3+2] {
			return nil, fmt.Errorf("word %d: %w", ix, ErrChecksum)
		}
		words[ix] = uint16(buf[ix*3])<<8 | uint16(buf[ix*3+1])
	}
	return words, nil
}
