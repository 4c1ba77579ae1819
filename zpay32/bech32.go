package zpay32

import (
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/breez/phoenixcore/lnwire"
)

// decodeBech32 decodes a Bolt 11 invoice string. Unlike bech32.Decode, a
// Bolt 11 string is not length limited and omits the usual bech32
// checksum-over-the-whole-string semantics beyond what DecodeNoLimit
// already verifies, so this is a thin wrapper kept separate for clarity
// at the call site in Decode.
func decodeBech32(invoice string) (string, []byte, error) {
	hrp, data, err := bech32.DecodeNoLimit(invoice)
	if err != nil {
		return "", nil, fmt.Errorf("invalid bech32 string: %w", err)
	}
	return hrp, data, nil
}

// picoPerMsat is the number of picobitcoin per millisatoshi: 1 BTC is
// 10^11 msat and 10^12 picobitcoin, so 1 msat == 10 picobitcoin.
const picoPerMsat = 10

// amountPicoMultiplier gives the picobitcoin value of one unit of the
// amount suffix (m=milli, u=micro, n=nano, p=pico-bitcoin); an unsuffixed
// amount is whole bitcoin.
var amountPicoMultiplier = map[byte]uint64{
	'm': 1e12 / 1e3,
	'u': 1e12 / 1e6,
	'n': 1e12 / 1e9,
	'p': 1,
}

// decodeAmount parses the amount portion of an hrp suffix, e.g. "2500u",
// into its millisatoshi value.
func decodeAmount(amount string) (lnwire.MilliSatoshi, error) {
	if len(amount) < 1 {
		return 0, fmt.Errorf("empty amount")
	}

	suffix := amount[len(amount)-1]
	picoMult, isSuffixed := amountPicoMultiplier[suffix]

	digits := amount
	if isSuffixed {
		digits = amount[:len(amount)-1]
	} else if suffix < '0' || suffix > '9' {
		return 0, fmt.Errorf("unknown amount suffix %q", suffix)
	} else {
		picoMult = 1e12
	}

	num, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	pico := num * picoMult
	if pico%picoPerMsat != 0 {
		return 0, fmt.Errorf("sub-millisatoshi amount %q not representable", amount)
	}

	return lnwire.MilliSatoshi(pico / picoPerMsat), nil
}

func encodeAmount(msat lnwire.MilliSatoshi) (string, error) {
	if msat == 0 {
		return "", nil
	}

	pico := uint64(msat) * picoPerMsat

	// Prefer the largest unit (fewest digits) that represents the
	// amount exactly, matching how other implementations round-trip.
	for _, suffix := range []byte{0, 'm', 'u', 'n', 'p'} {
		if suffix == 0 {
			if pico%1e12 == 0 {
				return strconv.FormatUint(pico/1e12, 10), nil
			}
			continue
		}
		mult := amountPicoMultiplier[suffix]
		if pico%mult == 0 {
			return strconv.FormatUint(pico/mult, 10) + string(suffix), nil
		}
	}

	return "", fmt.Errorf("amount %d msat not representable", msat)
}

func uint64ToBase32(num uint64) []byte {
	if num == 0 {
		return []byte{0}
	}
	var out []byte
	for num > 0 {
		out = append([]byte{byte(num & 0x1f)}, out...)
		num >>= 5
	}
	return out
}

func base32ToUint64(data []byte) (uint64, error) {
	if len(data) > 13 {
		return 0, fmt.Errorf("base32 data too long to fit in uint64: %d digits", len(data))
	}
	var num uint64
	for _, b := range data {
		if b >= 32 {
			return 0, fmt.Errorf("invalid base32 digit %d", b)
		}
		num = num<<5 | uint64(b)
	}
	return num, nil
}
