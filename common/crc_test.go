// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"errors"
	"strings"
	"testing"
)

func TestCRC8(t *testing.T) {
	var tests = []struct {
		bytes  []byte
		result byte
	}{
		{bytes: []byte{0xbe, 0xef}, result: 0x92},
		{bytes: []byte{0x01, 0xa4}, result: 0x4d},
		{bytes: []byte{0xab, 0xcd}, result: 0x6f},
		{bytes: []byte{0x00, 0x00}, result: 0x81},
	}
	for _, test := range tests {
		res := CRC8(test.bytes)
		if res != test.result {
			t.Errorf("CRC8(%#v)!=0x%x received 0x%x", test.bytes, test.result, res)
		}
	}
}

// Flipping any single bit of a two byte input must change the checksum,
// otherwise a single-bit wire error could go undetected.
func TestCRC8BitFlip(t *testing.T) {
	bases := [][]byte{
		{0xbe, 0xef},
		{0x00, 0x00},
		{0xff, 0xff},
		{0x12, 0x34},
	}
	for _, base := range bases {
		want := CRC8(base)
		for bit := 0; bit < 16; bit++ {
			flipped := []byte{base[0], base[1]}
			flipped[bit/8] ^= 1 << (bit % 8)
			if CRC8(flipped) == want {
				t.Errorf("CRC8(%#v) unchanged after flipping bit %d of %#v", flipped, bit, base)
			}
		}
	}
}

func TestDecodeWords(t *testing.T) {
	words, err := DecodeWords([]byte{0xbe, 0xef, 0x92, 0x00, 0x01, 0xb0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 || words[0] != 0xbeef || words[1] != 0x0001 {
		t.Errorf("unexpected words %#v", words)
	}
}

// Words 1 and 2 both carry bad checksums. The decode must report the first
// of them and return no partial output.
func TestDecodeWordsBadChecksum(t *testing.T) {
	buf := []byte{0xbe, 0xef, 0x92, 0xbe, 0xef, 0x00, 0xbe, 0xef, 0x01}
	words, err := DecodeWords(buf, 3)
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
	if words != nil {
		t.Errorf("expected no partial output, got %#v", words)
	}
	if !strings.Contains(err.Error(), "word 1") {
		t.Errorf("error does not name the first failing word: %v", err)
	}
}

func TestDecodeWordsShortFrame(t *testing.T) {
	_, err := DecodeWords([]byte{0xbe, 0xef}, 1)
	if err == nil {
		t.Fatal("short frame did not generate an error")
	}
	if errors.Is(err, ErrChecksum) {
		t.Error("short frame misreported as a checksum failure")
	}
}
