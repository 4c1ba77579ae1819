package sweep

import "github.com/btcsuite/btcd/wire"

// Sweep partitions the given inputs into one or more above-dust,
// positive-yield sets and builds a signed sweep transaction for each.
// Inputs that would make a set's output dip below the dust limit are
// dropped rather than included, matching the partitioning rule the
// teacher's txgenerator applies per-set.
func Sweep(inputs []Input, outputPkScript []byte, currentBlockHeight uint32, relayFeePerKW, feePerKW SatPerKWeight, maxInputsPerTx int, signer Signer) ([]*wire.MsgTx, error) {
	if maxInputsPerTx <= 0 {
		maxInputsPerTx = DefaultMaxInputsPerTx
	}

	sets, err := generateInputPartitionings(inputs, relayFeePerKW, feePerKW, maxInputsPerTx)
	if err != nil {
		return nil, err
	}

	txs := make([]*wire.MsgTx, 0, len(sets))
	for _, set := range sets {
		tx, err := createSweepTx(set, outputPkScript, currentBlockHeight, feePerKW, signer)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, nil
}
