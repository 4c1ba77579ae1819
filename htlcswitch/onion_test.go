package htlcswitch

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func TestNewOnionPeelerRejectsGarbageBlob(t *testing.T) {
	nodeKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	peeler := NewOnionPeeler(nodeKey, nil)

	var paymentHash [32]byte
	_, err = peeler.Peel([]byte("not a sphinx packet"), paymentHash)
	require.Error(t, err)
}
