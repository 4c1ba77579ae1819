package sweep

import (
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/breez/phoenixcore/lnwallet"
)

type fakeInput struct {
	op          wire.OutPoint
	witnessType WitnessType
	value       int64
	maturity    uint32
}

func (f *fakeInput) OutPoint() *wire.OutPoint     { return &f.op }
func (f *fakeInput) WitnessType() WitnessType     { return f.witnessType }
func (f *fakeInput) BlocksToMaturity() uint32     { return f.maturity }
func (f *fakeInput) SignDesc() *lnwallet.SignDescriptor {
	return &lnwallet.SignDescriptor{Output: &wire.TxOut{Value: f.value}}
}
func (f *fakeInput) BuildWitness(signer Signer, tx *wire.MsgTx, hashCache *txscript.TxSigHashes, idx int) (wire.TxWitness, error) {
	return wire.TxWitness{{0x01}}, nil
}

type fakeSigner struct{}

func (fakeSigner) SignInputScript(tx *wire.MsgTx, signDesc *lnwallet.SignDescriptor) (wire.TxWitness, error) {
	return wire.TxWitness{{0x01}}, nil
}

func TestGenerateInputPartitioningsDropsDustSets(t *testing.T) {
	inputs := []Input{
		&fakeInput{op: wire.OutPoint{Index: 0}, witnessType: CommitmentNoDelay, value: 1_000_000},
		&fakeInput{op: wire.OutPoint{Index: 1}, witnessType: CommitmentNoDelay, value: 400},
	}

	sets, err := generateInputPartitionings(inputs, 253, 10_000, DefaultMaxInputsPerTx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.Len(t, sets[0], 1)
}

func TestSweepBuildsSpendingTransaction(t *testing.T) {
	inputs := []Input{
		&fakeInput{op: wire.OutPoint{Index: 0}, witnessType: CommitmentTimeLock, value: 500_000, maturity: 144},
		&fakeInput{op: wire.OutPoint{Index: 1}, witnessType: HtlcOfferedRemoteTimeout, value: 200_000},
	}

	txs, err := Sweep(inputs, []byte{0x00, 0x14}, 700_000, 253, 10_000, 0, fakeSigner{})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	tx := txs[0]
	require.Len(t, tx.TxIn, 2)
	require.Len(t, tx.TxOut, 1)
	require.Equal(t, uint32(700_000), tx.LockTime)
	require.Less(t, tx.TxOut[0].Value, int64(700_000))
}

func TestGetInputWitnessSizeUpperBoundRejectsUnknownType(t *testing.T) {
	_, err := getInputWitnessSizeUpperBound(&fakeInput{witnessType: WitnessType(99)})
	require.Error(t, err)
}
