// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tailer

import (
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Encoding selects the source byte encoding of a tailed file.
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	EncodingGBK
)

// decodeGBK converts buf (which may end with a partial multi-byte
// sequence) to UTF-8, returning the converted bytes and the count of
// trailing undecoded source bytes to hold back for the next read tick.
func decodeGBK(buf []byte) (decoded []byte, held int) {
	// Transform is called with atEOF false, so a dangling lead byte at the
	// end of buf stops it with transform.ErrShortSrc instead of being
	// replaced; nSrc is how much of buf was converted, and the remainder is
	// held back to be prepended to the next read tick.
	dst := make([]byte, 3*len(buf))
	var dec transform.Transformer = simplifiedchinese.GBK.NewDecoder()
	nDst, nSrc, _ := dec.Transform(dst, buf, false)
	return dst[:nDst], len(buf) - nSrc
}

// convert applies enc to buf, returning converted bytes and the number of
// trailing source bytes that must be held back to the next tick (a
// partial multi-byte sequence). UTF-8 input is passed through unchanged
// apart from holding back a dangling multi-byte tail; it is not validated.
func convert(enc Encoding, buf []byte) (out []byte, held int) {
	switch enc {
	case EncodingGBK:
		return decodeGBK(buf)
	default:
		return utf8HoldBack(buf)
	}
}

// utf8HoldBack scans from the end of buf for a valid UTF-8 boundary,
// holding back at most the last 3 bytes if they begin a truncated
// multi-byte rune.
func utf8HoldBack(buf []byte) ([]byte, int) {
	n := len(buf)
	for hold := 0; hold < 4 && hold < n; hold++ {
		b := buf[n-1-hold]
		if b < 0x80 {
			// ASCII continuation scanned past any lead byte; nothing held.
			return buf, 0
		}
		if b>>6 == 0b10 {
			// continuation byte, keep scanning backward
			continue
		}
		// lead byte: does it, plus what follows, make a complete rune?
		want := runeLen(b)
		if want == 0 || want <= hold+1 {
			return buf, 0
		}
		return buf[:n-hold-1], hold + 1
	}
	return buf, 0
}

func runeLen(lead byte) int {
	switch {
	case lead>>5 == 0b110:
		return 2
	case lead>>4 == 0b1110:
		return 3
	case lead>>3 == 0b11110:
		return 4
	default:
		return 0
	}
}
