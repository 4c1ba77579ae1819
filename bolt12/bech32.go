package bolt12

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// charset is the standard bech32 alphabet. Offers, invoice requests, and
// invoices reuse bech32's bit-grouping but never compute or check its
// checksum, so the charset has to be mapped by hand rather than going
// through bech32.Encode/Decode, both of which always append or verify
// one.
const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// encodeNoChecksum bit-packs data into 5-bit groups and renders it as
// hrp + "1" + data, with no checksum appended. This is BOLT 12's wire
// format: offers are meant to be copied into QR codes and chat messages,
// not transmitted over a channel that could corrupt them in transit, so
// the extra 6 characters of a checksum buy nothing.
func encodeNoChecksum(hrp string, data []byte) (string, error) {
	converted, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("converting bits: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, b := range converted {
		if int(b) >= len(charset) {
			return "", fmt.Errorf("invalid 5-bit group %d", b)
		}
		sb.WriteByte(charset[b])
	}
	return sb.String(), nil
}

// decodeNoChecksum reverses encodeNoChecksum: it splits on the last '1'
// separator, maps each data character back to its 5-bit value, and
// converts the result back to bytes. There is no checksum to verify; a
// corrupted string is only caught if the TLV decode or signature check
// that follows rejects it.
func decodeNoChecksum(s string) (hrp string, data []byte, err error) {
	sep := strings.LastIndexByte(s, '1')
	if sep < 1 || sep+1 >= len(s) {
		return "", nil, fmt.Errorf("invalid bolt12 string: no separator")
	}

	hrp = s[:sep]
	fiveBit := make([]byte, len(s)-sep-1)
	for i, c := range s[sep+1:] {
		idx := strings.IndexRune(charset, c)
		if idx < 0 {
			return "", nil, fmt.Errorf("invalid bolt12 character %q", c)
		}
		fiveBit[i] = byte(idx)
	}

	data, err = bech32.ConvertBits(fiveBit, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("converting bits: %w", err)
	}
	return hrp, data, nil
}
