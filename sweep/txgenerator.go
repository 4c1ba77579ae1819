package sweep

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
)

// DefaultMaxInputsPerTx caps the number of inputs batched into a single
// sweep transaction; inputs beyond this are swept in a later tx.
var DefaultMaxInputsPerTx = 100

type inputSet []Input

// generateInputPartitionings groups sweepable inputs into sets that each
// yield a positive, above-dust sweep output, ordered so the
// highest-yielding inputs are swept first.
func generateInputPartitionings(sweepableInputs []Input, relayFeePerKW, feePerKW SatPerKWeight, maxInputsPerTx int) ([]inputSet, error) {
	dustLimit := txrules.GetDustThreshold(
		P2WPKHSize, btcutil.Amount(relayFeePerKW.FeePerKVByte()),
	)

	yields := make(map[wire.OutPoint]int64)
	for _, input := range sweepableInputs {
		size, err := getInputWitnessSizeUpperBound(input)
		if err != nil {
			return nil, fmt.Errorf("failed adding input weight: %w", err)
		}

		yields[*input.OutPoint()] = input.SignDesc().Output.Value -
			int64(feePerKW.FeeForWeight(int64(size)))
	}

	sort.Slice(sweepableInputs, func(i, j int) bool {
		return yields[*sweepableInputs[i].OutPoint()] >
			yields[*sweepableInputs[j].OutPoint()]
	})

	var sets []inputSet
	for len(sweepableInputs) > 0 {
		count, outputValue := getPositiveYieldInputs(sweepableInputs, maxInputsPerTx, feePerKW)
		if count == 0 {
			return sets, nil
		}

		if outputValue < dustLimit {
			log.Debugf("set value %v below dust limit of %v", outputValue, dustLimit)
			return sets, nil
		}

		log.Infof("candidate sweep set of size=%v, has yield=%v", count, outputValue)

		sets = append(sets, sweepableInputs[:count])
		sweepableInputs = sweepableInputs[count:]
	}

	return sets, nil
}

// getPositiveYieldInputs returns the largest prefix of sweepableInputs
// whose inputs each add positive value to the set, along with that set's
// total output value after fees.
func getPositiveYieldInputs(sweepableInputs []Input, maxInputs int, feePerKW SatPerKWeight) (int, btcutil.Amount) {
	var weightEstimate TxWeightEstimator
	weightEstimate.AddP2WKHOutput()

	var total, outputValue btcutil.Amount
	for idx, input := range sweepableInputs {
		size, _ := getInputWitnessSizeUpperBound(input)
		weightEstimate.AddWitnessInput(size)

		newTotal := total + btcutil.Amount(input.SignDesc().Output.Value)

		weight := weightEstimate.Weight()
		fee := feePerKW.FeeForWeight(weight)

		newOutputValue := newTotal - fee

		if newOutputValue <= outputValue {
			return idx, outputValue
		}

		total = newTotal
		outputValue = newOutputValue

		if idx == maxInputs-1 {
			return maxInputs, outputValue
		}
	}

	return len(sweepableInputs), outputValue
}

// createSweepTx builds and signs a transaction spending inputs to a single
// output paying outputPkScript.
func createSweepTx(inputs []Input, outputPkScript []byte, currentBlockHeight uint32, feePerKw SatPerKWeight, signer Signer) (*wire.MsgTx, error) {
	inputs, txWeight, csvCount, cltvCount := getWeightEstimate(inputs)

	log.Infof("creating sweep transaction for %v inputs (%v CSV, %v CLTV) "+
		"using %v sat/kw", len(inputs), csvCount, cltvCount, int64(feePerKw))

	txFee := feePerKw.FeeForWeight(txWeight)

	var totalSum btcutil.Amount
	for _, o := range inputs {
		totalSum += btcutil.Amount(o.SignDesc().Output.Value)
	}

	sweepAmt := int64(totalSum - txFee)

	sweepTx := wire.NewMsgTx(2)
	sweepTx.AddTxOut(&wire.TxOut{PkScript: outputPkScript, Value: sweepAmt})
	sweepTx.LockTime = currentBlockHeight

	for _, input := range inputs {
		sweepTx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: *input.OutPoint(),
			Sequence:         input.BlocksToMaturity(),
		})
	}

	btx := btcutil.NewTx(sweepTx)
	if err := blockchain.CheckTransactionSanity(btx); err != nil {
		return nil, err
	}

	hashCache := txscript.NewTxSigHashes(sweepTx)

	for i, input := range inputs {
		witness, err := input.BuildWitness(signer, sweepTx, hashCache, i)
		if err != nil {
			return nil, err
		}
		sweepTx.TxIn[i].Witness = witness
	}

	return sweepTx, nil
}

// getInputWitnessSizeUpperBound returns the maximum witness length for the
// given input's spending path.
func getInputWitnessSizeUpperBound(input Input) (int, error) {
	switch input.WitnessType() {
	case CommitmentNoDelay:
		return P2WKHWitnessSize, nil
	case CommitmentTimeLock, HtlcOfferedTimeoutSecondLevel, HtlcAcceptedSuccessSecondLevel:
		return ToLocalTimeoutWitnessSize, nil
	case HtlcOfferedRemoteTimeout:
		return AcceptedHtlcTimeoutWitnessSize, nil
	case HtlcAcceptedRemoteSuccess:
		return OfferedHtlcSuccessWitnessSize, nil
	}

	return 0, fmt.Errorf("unexpected witness type: %v", input.WitnessType())
}

// getWeightEstimate returns the inputs that could be weight-estimated, the
// resulting transaction weight, and CSV/CLTV input counts.
func getWeightEstimate(inputs []Input) ([]Input, int64, int, int) {
	var weightEstimate TxWeightEstimator
	weightEstimate.AddP2WKHOutput()

	var (
		sweepInputs         []Input
		csvCount, cltvCount int
	)
	for i := range inputs {
		input := inputs[i]

		size, err := getInputWitnessSizeUpperBound(input)
		if err != nil {
			log.Warnf("skipping input: %v", err)
			continue
		}
		weightEstimate.AddWitnessInput(size)

		switch input.WitnessType() {
		case CommitmentTimeLock, HtlcOfferedTimeoutSecondLevel, HtlcAcceptedSuccessSecondLevel:
			csvCount++
		case HtlcOfferedRemoteTimeout:
			cltvCount++
		}
		sweepInputs = append(sweepInputs, input)
	}

	return sweepInputs, weightEstimate.Weight(), csvCount, cltvCount
}
