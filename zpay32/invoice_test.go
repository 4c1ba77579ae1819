package zpay32

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/breez/phoenixcore/lnwire"
)

func testSigner(t *testing.T, priv *btcec.PrivateKey) MessageSigner {
	return MessageSigner{
		SignCompact: func(hash []byte) ([]byte, error) {
			return ecdsa.SignCompact(priv, hash, true), nil
		},
	}
}

func TestEncodeDecodeRoundTripWithDescription(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var paymentHash [32]byte
	paymentHash[0] = 0x42

	amt := lnwire.MilliSatoshi(250000)
	invoice, err := NewInvoice(
		&chaincfg.MainNetParams, paymentHash, time.Unix(1700000000, 0),
		Amount(amt),
		Description("coffee"),
		Destination(priv.PubKey()),
	)
	require.NoError(t, err)

	encoded, err := invoice.Encode(testSigner(t, priv))
	require.NoError(t, err)
	require.True(t, len(encoded) > 0)
	require.Equal(t, "lnbc", encoded[:4])

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	require.Equal(t, paymentHash, *decoded.PaymentHash)
	require.Equal(t, amt, *decoded.MilliSat)
	require.Equal(t, "coffee", *decoded.Description)
	require.Equal(t, priv.PubKey().SerializeCompressed(), decoded.Destination.SerializeCompressed())
	require.Equal(t, invoice.Timestamp.Unix(), decoded.Timestamp.Unix())
}

func TestEncodeDecodeRoundTripWithDescriptionHashAndNoAmount(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var paymentHash, descHash [32]byte
	paymentHash[0] = 0x01
	descHash[0] = 0x02

	invoice, err := NewInvoice(
		&chaincfg.TestNet3Params, paymentHash, time.Unix(1700000001, 0),
		DescriptionHash(descHash),
	)
	require.NoError(t, err)

	encoded, err := invoice.Encode(testSigner(t, priv))
	require.NoError(t, err)
	require.Equal(t, "lntb", encoded[:4])

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	require.Nil(t, decoded.MilliSat)
	require.Equal(t, descHash, *decoded.DescriptionHash)
	// Destination wasn't set on the invoice, so Decode recovers it from
	// the signature; it must match the signing key's pubkey.
	require.Equal(t, priv.PubKey().SerializeCompressed(), decoded.Destination.SerializeCompressed())
}

func TestDecodeRejectsBothDescriptionAndHash(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var paymentHash, descHash [32]byte
	desc := "x"
	invoice := &Invoice{
		Net:             &chaincfg.MainNetParams,
		PaymentHash:     &paymentHash,
		Timestamp:       time.Unix(1700000002, 0),
		Description:     &desc,
		DescriptionHash: &descHash,
		Destination:     priv.PubKey(),
	}

	_, err = invoice.Encode(testSigner(t, priv))
	require.Error(t, err)
}

func TestNewInvoiceRequiresDescriptionOrHash(t *testing.T) {
	var paymentHash [32]byte
	_, err := NewInvoice(&chaincfg.MainNetParams, paymentHash, time.Unix(1700000003, 0))
	require.Error(t, err)
}

func TestEncodeDecodeRoundTripWithRoutingHints(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	hopKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var paymentHash [32]byte
	paymentHash[0] = 0x09

	hints := []ExtraRoutingInfo{{
		PubKey:                    hopKey.PubKey(),
		ShortChanID:               123456789,
		FeeBaseMsat:               1000,
		FeeProportionalMillionths: 100,
		CltvExpDelta:              144,
	}}

	invoice, err := NewInvoice(
		&chaincfg.MainNetParams, paymentHash, time.Unix(1700000004, 0),
		Description("routed"),
		Destination(priv.PubKey()),
		RoutingInfo(hints),
	)
	require.NoError(t, err)

	encoded, err := invoice.Encode(testSigner(t, priv))
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	require.Len(t, decoded.RoutingInfo, 1)
	require.Equal(t, hopKey.PubKey().SerializeCompressed(), decoded.RoutingInfo[0].PubKey.SerializeCompressed())
	require.Equal(t, uint64(123456789), decoded.RoutingInfo[0].ShortChanID)
	require.Equal(t, uint16(144), decoded.RoutingInfo[0].CltvExpDelta)
}

func TestEncodeDecodeRoundTripWithExpiryAndCLTV(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var paymentHash [32]byte
	paymentHash[0] = 0x0a

	invoice, err := NewInvoice(
		&chaincfg.MainNetParams, paymentHash, time.Unix(1700000005, 0),
		Description("expiring"),
		Destination(priv.PubKey()),
		Expiry(30*time.Minute),
		CLTVExpiry(40),
	)
	require.NoError(t, err)

	encoded, err := invoice.Encode(testSigner(t, priv))
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	require.Equal(t, 30*time.Minute, decoded.Expiry())
	require.Equal(t, uint64(40), decoded.MinFinalCLTVExpiry())
}

func TestDefaultExpiryAndCLTVWhenUnset(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var paymentHash [32]byte
	invoice, err := NewInvoice(
		&chaincfg.MainNetParams, paymentHash, time.Unix(1700000006, 0),
		Description("defaults"),
	)
	require.NoError(t, err)

	require.Equal(t, defaultExpiry, invoice.Expiry())
	require.Equal(t, uint64(defaultFinalCLTVExpiry), invoice.MinFinalCLTVExpiry())

	_ = testSigner(t, priv)
}

func TestDecodeRejectsTamperedSignature(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var paymentHash [32]byte
	paymentHash[0] = 0x0b

	invoice, err := NewInvoice(
		&chaincfg.MainNetParams, paymentHash, time.Unix(1700000007, 0),
		Description("tamper"),
		Destination(priv.PubKey()),
	)
	require.NoError(t, err)

	encoded, err := invoice.Encode(testSigner(t, priv))
	require.NoError(t, err)

	tampered := []byte(encoded)
	// Flip a character in the middle of the tagged-field data, leaving
	// the trailing signature bytes untouched.
	mid := len(tampered) / 2
	if tampered[mid] == 'q' {
		tampered[mid] = 'p'
	} else {
		tampered[mid] = 'q'
	}

	_, err = Decode(string(tampered))
	require.Error(t, err)
}

func TestAmountEncodeDecodeRoundTrip(t *testing.T) {
	cases := []lnwire.MilliSatoshi{0, 1, 10, 999, 1000, 250000, 100000000000}
	for _, amt := range cases {
		encoded, err := encodeAmount(amt)
		require.NoError(t, err)
		if amt == 0 {
			require.Empty(t, encoded)
			continue
		}
		decoded, err := decodeAmount(encoded)
		require.NoError(t, err)
		require.Equal(t, amt, decoded, "amount %d round-tripped via %q", amt, encoded)
	}
}
