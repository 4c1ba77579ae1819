// Package zpay32 encodes and decodes Bolt 11 payment request strings: a
// bech32 envelope over a human-readable amount prefix, a set of tagged
// data fields, and a recoverable signature over the whole thing.
package zpay32

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/breez/phoenixcore/lnwire"
)

const (
	signatureBase32Len = 104
	timestampBase32Len = 7
	hashBase32Len      = 52
	pubKeyBase32Len    = 53

	fieldTypeP = 1
	fieldTypeD = 13
	fieldTypeN = 19
	fieldTypeH = 23
	fieldTypeX = 6
	fieldTypeF = 9
	fieldTypeR = 3
	fieldTypeC = 24

	defaultExpiry          = 3600 * time.Second
	defaultFinalCLTVExpiry = 18

	maxRoutingHops = 20
)

// MessageSigner is passed to Encode to produce the invoice's recoverable
// signature. SignCompact must return a 65-byte signature: one header byte
// (27+4+recoveryID for a compressed key) followed by the 64-byte r||s
// compact signature, matching btcec/v2/ecdsa.SignCompact's output.
type MessageSigner struct {
	SignCompact func(hash []byte) ([]byte, error)
}

// ExtraRoutingInfo is one entry of a private route the invoice advertises
// so the payer can reach a node with no public channels.
type ExtraRoutingInfo struct {
	PubKey                    *btcec.PublicKey
	ShortChanID               uint64
	FeeBaseMsat               uint32
	FeeProportionalMillionths uint32
	CltvExpDelta              uint16
}

// Invoice is a decoded invoice, or one under construction for Encode.
type Invoice struct {
	Net *chaincfg.Params

	MilliSat *lnwire.MilliSatoshi

	Timestamp time.Time

	PaymentHash *[32]byte

	Destination *btcec.PublicKey

	minFinalCLTVExpiry *uint64

	Description     *string
	DescriptionHash *[32]byte

	expiry *time.Duration

	FallbackAddr btcutil.Address

	RoutingInfo []ExtraRoutingInfo
}

// Option configures an Invoice built with NewInvoice.
type Option func(*Invoice)

func Amount(msat lnwire.MilliSatoshi) Option {
	return func(i *Invoice) { i.MilliSat = &msat }
}

func Destination(dest *btcec.PublicKey) Option {
	return func(i *Invoice) { i.Destination = dest }
}

func Description(desc string) Option {
	return func(i *Invoice) { i.Description = &desc }
}

func DescriptionHash(hash [32]byte) Option {
	return func(i *Invoice) { i.DescriptionHash = &hash }
}

func CLTVExpiry(delta uint64) Option {
	return func(i *Invoice) { i.minFinalCLTVExpiry = &delta }
}

func Expiry(d time.Duration) Option {
	return func(i *Invoice) { i.expiry = &d }
}

func FallbackAddr(addr btcutil.Address) Option {
	return func(i *Invoice) { i.FallbackAddr = addr }
}

func RoutingInfo(hints []ExtraRoutingInfo) Option {
	return func(i *Invoice) { i.RoutingInfo = hints }
}

// NewInvoice builds an Invoice, applying options, and validates it.
func NewInvoice(net *chaincfg.Params, paymentHash [32]byte, timestamp time.Time, opts ...Option) (*Invoice, error) {
	invoice := &Invoice{Net: net, PaymentHash: &paymentHash, Timestamp: timestamp}
	for _, opt := range opts {
		opt(invoice)
	}
	if err := validateInvoice(invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// Expiry returns the invoice's validity window, defaulting to one hour.
func (invoice *Invoice) Expiry() time.Duration {
	if invoice.expiry != nil {
		return *invoice.expiry
	}
	return defaultExpiry
}

// MinFinalCLTVExpiry returns the final hop's required cltv delta,
// defaulting to defaultFinalCLTVExpiry.
func (invoice *Invoice) MinFinalCLTVExpiry() uint64 {
	if invoice.minFinalCLTVExpiry != nil {
		return *invoice.minFinalCLTVExpiry
	}
	return defaultFinalCLTVExpiry
}

// Decode parses a bech32-encoded Bolt 11 invoice string.
func Decode(invoice string) (*Invoice, error) {
	decoded := Invoice{}

	hrp, data, err := decodeBech32(invoice)
	if err != nil {
		return nil, err
	}

	if len(hrp) < 4 {
		return nil, fmt.Errorf("hrp too short")
	}
	if hrp[:2] != "ln" {
		return nil, fmt.Errorf("prefix should be \"ln\"")
	}

	net, netPrefixLen, err := netForHRP(hrp[2:])
	if err != nil {
		return nil, err
	}
	decoded.Net = net

	amountSuffix := hrp[2+netPrefixLen:]
	if len(amountSuffix) > 0 {
		amount, err := decodeAmount(amountSuffix)
		if err != nil {
			return nil, err
		}
		decoded.MilliSat = &amount
	}

	if len(data) < signatureBase32Len {
		return nil, fmt.Errorf("invoice too short")
	}
	invoiceData := data[:len(data)-signatureBase32Len]
	if err := parseData(&decoded, invoiceData, net); err != nil {
		return nil, err
	}

	sigBase32 := data[len(data)-signatureBase32Len:]
	sigBase256, err := bech32.ConvertBits(sigBase32, 5, 8, true)
	if err != nil {
		return nil, err
	}
	var sigBytes [64]byte
	copy(sigBytes[:], sigBase256[:64])
	recoveryID := sigBase256[64]

	taggedDataBytes, err := bech32.ConvertBits(invoiceData, 5, 8, true)
	if err != nil {
		return nil, err
	}
	toSign := append([]byte(hrp), taggedDataBytes...)
	hashArr := sha256.Sum256(toSign)
	hash := hashArr[:]

	if decoded.Destination != nil {
		sig, err := parseCompactSignature(sigBytes)
		if err != nil {
			return nil, err
		}
		if !sig.Verify(hash, decoded.Destination) {
			return nil, fmt.Errorf("invalid invoice signature")
		}
	} else {
		compact := append([]byte{recoveryID + 27 + 4}, sigBytes[:]...)
		pubKey, _, err := ecdsa.RecoverCompact(compact, hash)
		if err != nil {
			return nil, err
		}
		decoded.Destination = pubKey
	}

	if err := validateInvoice(&decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

// Encode signs and bech32-encodes the invoice.
func (invoice *Invoice) Encode(signer MessageSigner) (string, error) {
	if err := validateInvoice(invoice); err != nil {
		return "", err
	}

	var buf bytes.Buffer

	timestampBase32 := uint64ToBase32(uint64(invoice.Timestamp.Unix()))
	if len(timestampBase32) > timestampBase32Len {
		return "", fmt.Errorf("timestamp too big: %d", invoice.Timestamp.Unix())
	}
	buf.Write(make([]byte, timestampBase32Len-len(timestampBase32)))
	buf.Write(timestampBase32)

	if err := writeTaggedFields(&buf, invoice); err != nil {
		return "", err
	}

	hrp := "ln" + invoice.Net.Bech32HRPSegwit
	if invoice.MilliSat != nil {
		am, err := encodeAmount(*invoice.MilliSat)
		if err != nil {
			return "", err
		}
		hrp += am
	}

	taggedFieldsBytes, err := bech32.ConvertBits(buf.Bytes(), 5, 8, true)
	if err != nil {
		return "", err
	}
	toSign := append([]byte(hrp), taggedFieldsBytes...)
	hashArr := sha256.Sum256(toSign)
	hash := hashArr[:]

	sig, err := signer.SignCompact(hash)
	if err != nil {
		return "", err
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("expected 65-byte compact signature, got %d", len(sig))
	}
	recoveryID := sig[0] - 27 - 4
	var sigBytes [64]byte
	copy(sigBytes[:], sig[1:])

	if invoice.Destination != nil {
		parsed, err := parseCompactSignature(sigBytes)
		if err != nil {
			return "", err
		}
		if !parsed.Verify(hash, invoice.Destination) {
			return "", fmt.Errorf("signature does not match provided pubkey")
		}
	}

	signBase32, err := bech32.ConvertBits(append(sigBytes[:], recoveryID), 8, 5, true)
	if err != nil {
		return "", err
	}
	buf.Write(signBase32)

	return bech32.Encode(hrp, buf.Bytes())
}

func parseCompactSignature(sigBytes [64]byte) (*ecdsa.Signature, error) {
	var r, s btcec.ModNScalar
	r.SetByteSlice(sigBytes[:32])
	s.SetByteSlice(sigBytes[32:])
	return ecdsa.NewSignature(&r, &s), nil
}

// netForHRP matches the longest known network prefix first, since
// regtest's "bcrt" would otherwise be shadowed by mainnet's "bc".
func netForHRP(suffix string) (*chaincfg.Params, int, error) {
	candidates := []*chaincfg.Params{
		&chaincfg.RegressionNetParams,
		&chaincfg.MainNetParams,
		&chaincfg.TestNet3Params,
		&chaincfg.SimNetParams,
	}
	for _, net := range candidates {
		if strings.HasPrefix(suffix, net.Bech32HRPSegwit) {
			return net, len(net.Bech32HRPSegwit), nil
		}
	}
	return nil, 0, fmt.Errorf("unknown network")
}

func validateInvoice(invoice *Invoice) error {
	if invoice.Net == nil {
		return fmt.Errorf("net params not set")
	}
	if invoice.PaymentHash == nil {
		return fmt.Errorf("no payment hash found")
	}
	if invoice.Description != nil && invoice.DescriptionHash != nil {
		return fmt.Errorf("both description and description hash set")
	}
	if invoice.Description == nil && invoice.DescriptionHash == nil {
		return fmt.Errorf("neither description nor description hash set")
	}
	if len(invoice.RoutingInfo) > maxRoutingHops {
		return fmt.Errorf("too many extra hops: %d", len(invoice.RoutingInfo))
	}
	return nil
}

func parseData(invoice *Invoice, data []byte, net *chaincfg.Params) error {
	if len(data) < timestampBase32Len {
		return fmt.Errorf("data too short: %d", len(data))
	}
	t, err := base32ToUint64(data[:timestampBase32Len])
	if err != nil {
		return err
	}
	invoice.Timestamp = time.Unix(int64(t), 0)

	return parseTaggedFields(invoice, data[timestampBase32Len:], net)
}

func parseTaggedFields(invoice *Invoice, fields []byte, net *chaincfg.Params) error {
	index := 0
	for len(fields)-index >= 3 {
		typ := fields[index]
		dataLength := uint16(fields[index+1])<<5 | uint16(fields[index+2])

		if len(fields) < index+3+int(dataLength) {
			return fmt.Errorf("invalid field length")
		}
		base32Data := fields[index+3 : index+3+int(dataLength)]
		index += 3 + int(dataLength)

		switch typ {
		case fieldTypeP:
			if invoice.PaymentHash != nil || dataLength != hashBase32Len {
				continue
			}
			hash, err := bech32.ConvertBits(base32Data, 5, 8, false)
			if err != nil {
				return err
			}
			var pHash [32]byte
			copy(pHash[:], hash)
			invoice.PaymentHash = &pHash

		case fieldTypeD:
			if invoice.Description != nil {
				continue
			}
			raw, err := bech32.ConvertBits(base32Data, 5, 8, false)
			if err != nil {
				return err
			}
			desc := string(raw)
			invoice.Description = &desc

		case fieldTypeN:
			if invoice.Destination != nil || len(base32Data) != pubKeyBase32Len {
				continue
			}
			raw, err := bech32.ConvertBits(base32Data, 5, 8, false)
			if err != nil {
				return err
			}
			invoice.Destination, err = btcec.ParsePubKey(raw)
			if err != nil {
				return err
			}

		case fieldTypeH:
			if invoice.DescriptionHash != nil || dataLength != hashBase32Len {
				continue
			}
			hash, err := bech32.ConvertBits(base32Data, 5, 8, false)
			if err != nil {
				return err
			}
			var dHash [32]byte
			copy(dHash[:], hash)
			invoice.DescriptionHash = &dHash

		case fieldTypeX:
			if invoice.expiry != nil {
				continue
			}
			exp, err := base32ToUint64(base32Data)
			if err != nil {
				return err
			}
			dur := time.Duration(exp) * time.Second
			invoice.expiry = &dur

		case fieldTypeC:
			if invoice.minFinalCLTVExpiry != nil {
				continue
			}
			expiry, err := base32ToUint64(base32Data)
			if err != nil {
				return err
			}
			invoice.minFinalCLTVExpiry = &expiry

		case fieldTypeF:
			if invoice.FallbackAddr != nil || len(base32Data) == 0 {
				continue
			}
			addr, err := decodeFallbackAddr(base32Data, net)
			if err != nil {
				return err
			}
			invoice.FallbackAddr = addr

		case fieldTypeR:
			if invoice.RoutingInfo != nil {
				continue
			}
			hints, err := decodeRoutingInfo(base32Data)
			if err != nil {
				return err
			}
			invoice.RoutingInfo = hints

		default:
			// Unknown field; ignore per Bolt 11.
		}
	}
	return nil
}

func decodeFallbackAddr(base32Data []byte, net *chaincfg.Params) (btcutil.Address, error) {
	version := base32Data[0]
	switch version {
	case 0:
		witness, err := bech32.ConvertBits(base32Data[1:], 5, 8, false)
		if err != nil {
			return nil, err
		}
		switch len(witness) {
		case 20:
			return btcutil.NewAddressWitnessPubKeyHash(witness, net)
		case 32:
			return btcutil.NewAddressWitnessScriptHash(witness, net)
		default:
			return nil, fmt.Errorf("unknown witness program length: %d", len(witness))
		}
	case 17:
		pkHash, err := bech32.ConvertBits(base32Data[1:], 5, 8, false)
		if err != nil {
			return nil, err
		}
		return btcutil.NewAddressPubKeyHash(pkHash, net)
	case 18:
		scriptHash, err := bech32.ConvertBits(base32Data[1:], 5, 8, false)
		if err != nil {
			return nil, err
		}
		return btcutil.NewAddressScriptHashFromHash(scriptHash, net)
	default:
		return nil, nil
	}
}

func decodeRoutingInfo(base32Data []byte) ([]ExtraRoutingInfo, error) {
	raw, err := bech32.ConvertBits(base32Data, 5, 8, false)
	if err != nil {
		return nil, err
	}

	var hints []ExtraRoutingInfo
	for len(raw) >= 51 {
		pubKey, err := btcec.ParsePubKey(raw[:33])
		if err != nil {
			return nil, err
		}
		hints = append(hints, ExtraRoutingInfo{
			PubKey:                    pubKey,
			ShortChanID:               binary.BigEndian.Uint64(raw[33:41]),
			FeeBaseMsat:               binary.BigEndian.Uint32(raw[41:45]),
			FeeProportionalMillionths: binary.BigEndian.Uint32(raw[45:49]),
			CltvExpDelta:              binary.BigEndian.Uint16(raw[49:51]),
		})
		raw = raw[51:]
	}
	return hints, nil
}

func writeTaggedFields(buf *bytes.Buffer, invoice *Invoice) error {
	if invoice.PaymentHash != nil {
		base32, err := bech32.ConvertBits(invoice.PaymentHash[:], 8, 5, true)
		if err != nil {
			return err
		}
		if err := writeTaggedField(buf, fieldTypeP, base32); err != nil {
			return err
		}
	}

	if invoice.Description != nil {
		base32, err := bech32.ConvertBits([]byte(*invoice.Description), 8, 5, true)
		if err != nil {
			return err
		}
		if err := writeTaggedField(buf, fieldTypeD, base32); err != nil {
			return err
		}
	}

	if invoice.DescriptionHash != nil {
		base32, err := bech32.ConvertBits(invoice.DescriptionHash[:], 8, 5, true)
		if err != nil {
			return err
		}
		if err := writeTaggedField(buf, fieldTypeH, base32); err != nil {
			return err
		}
	}

	if invoice.minFinalCLTVExpiry != nil {
		if err := writeTaggedField(buf, fieldTypeC, uint64ToBase32(*invoice.minFinalCLTVExpiry)); err != nil {
			return err
		}
	}

	if invoice.expiry != nil {
		if err := writeTaggedField(buf, fieldTypeX, uint64ToBase32(uint64(invoice.expiry.Seconds()))); err != nil {
			return err
		}
	}

	if invoice.FallbackAddr != nil {
		var version byte
		switch addr := invoice.FallbackAddr.(type) {
		case *btcutil.AddressPubKeyHash:
			version = 17
		case *btcutil.AddressScriptHash:
			version = 18
		case *btcutil.AddressWitnessPubKeyHash:
			version = addr.WitnessVersion()
		case *btcutil.AddressWitnessScriptHash:
			version = addr.WitnessVersion()
		default:
			return fmt.Errorf("unknown fallback address type")
		}
		base32Addr, err := bech32.ConvertBits(invoice.FallbackAddr.ScriptAddress(), 8, 5, true)
		if err != nil {
			return err
		}
		if err := writeTaggedField(buf, fieldTypeF, append([]byte{version}, base32Addr...)); err != nil {
			return err
		}
	}

	if len(invoice.RoutingInfo) > 0 {
		routingBase256 := make([]byte, 0, 51*len(invoice.RoutingInfo))
		for _, r := range invoice.RoutingInfo {
			hop := make([]byte, 51)
			copy(hop[:33], r.PubKey.SerializeCompressed())
			binary.BigEndian.PutUint64(hop[33:41], r.ShortChanID)
			binary.BigEndian.PutUint32(hop[41:45], r.FeeBaseMsat)
			binary.BigEndian.PutUint32(hop[45:49], r.FeeProportionalMillionths)
			binary.BigEndian.PutUint16(hop[49:51], r.CltvExpDelta)
			routingBase256 = append(routingBase256, hop...)
		}
		routingBase32, err := bech32.ConvertBits(routingBase256, 8, 5, true)
		if err != nil {
			return err
		}
		if err := writeTaggedField(buf, fieldTypeR, routingBase32); err != nil {
			return err
		}
	}

	if invoice.Destination != nil {
		base32, err := bech32.ConvertBits(invoice.Destination.SerializeCompressed(), 8, 5, true)
		if err != nil {
			return err
		}
		if err := writeTaggedField(buf, fieldTypeN, base32); err != nil {
			return err
		}
	}

	return nil
}

func writeTaggedField(buf *bytes.Buffer, dataType byte, data []byte) error {
	lenBase32 := uint64ToBase32(uint64(len(data)))
	for len(lenBase32) < 2 {
		lenBase32 = append([]byte{0}, lenBase32...)
	}
	if len(lenBase32) != 2 {
		return fmt.Errorf("data length too big to fit within 10 bits: %d", len(data))
	}

	buf.WriteByte(dataType)
	buf.Write(lenBase32)
	buf.Write(data)
	return nil
}
