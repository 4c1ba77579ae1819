package sweep

import "github.com/btcsuite/btcd/btcutil"

// SatPerKWeight is a fee rate expressed in satoshis per kilo-weight-unit,
// the unit sweep transactions are priced in (matches the teacher's
// lnwallet.SatPerKWeight convention).
type SatPerKWeight int64

// FeeForWeight returns the fee, in satoshis, owed for a transaction of the
// given weight at this rate.
func (f SatPerKWeight) FeeForWeight(weight int64) btcutil.Amount {
	return btcutil.Amount(int64(f) * weight / 1000)
}

// FeePerKVByte converts this weight-based rate into a legacy vsize-based
// rate, needed by txrules.GetDustThreshold which still speaks vbytes.
func (f SatPerKWeight) FeePerKVByte() int64 {
	return int64(f) * 4
}

const (
	witnessScaleFactor = 4

	baseTxSize = 10

	p2wkhOutputSize = 31
)

// TxWeightEstimator accumulates the weight of a transaction as inputs and
// outputs are added, mirroring the teacher's lnwallet.TxWeightEstimator.
type TxWeightEstimator struct {
	inputCount          int
	inputWitnessWeight  int64
	outputCount         int
	outputSize          int64
}

// AddP2WKHOutput records a single P2WKH output.
func (w *TxWeightEstimator) AddP2WKHOutput() {
	w.outputCount++
	w.outputSize += p2wkhOutputSize
}

// AddWitnessInput records an input whose witness is witnessSize bytes.
func (w *TxWeightEstimator) AddWitnessInput(witnessSize int) {
	w.inputCount++
	w.inputWitnessWeight += int64(witnessSize)
}

// Weight returns the running weight estimate in weight units.
func (w *TxWeightEstimator) Weight() int64 {
	// Non-witness bytes (version, locktime, input/output counts, the
	// fixed 41-byte-per-input prevout+sequence, and outputs) count at
	// the full scale factor; witness bytes count at 1x.
	baseSize := int64(baseTxSize) + int64(w.inputCount)*41 + w.outputSize
	return baseSize*witnessScaleFactor + w.inputWitnessWeight + int64(w.inputCount)*2
}
