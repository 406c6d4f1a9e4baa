package friction

// SaveRuptureFrontOutput records the step time at which the slip rate
// first exceeds RuptureFrontThreshold
func SaveRuptureFrontOutput(pending []bool, ruptureTime, slipRate []float64, n int, fullUpdateTime float64) {
	for i := 0; i < n; i++ {
		if pending[i] && slipRate[i] > RuptureFrontThreshold {
			ruptureTime[i] = fullUpdateTime
			pending[i] = false
		}
	}
}

// SavePeakSlipRateOutput keeps the running maximum of the slip rate
func SavePeakSlipRateOutput(peakSlipRate, slipRate []float64, n int) {
	for i := 0; i < n; i++ {
		if slipRate[i] > peakSlipRate[i] {
			peakSlipRate[i] = slipRate[i]
		}
	}
}

// SaveAverageSlipOutput adds the mean slip of this step over the n
// boundary points to averagedSlip
func SaveAverageSlipOutput(tmpSlip []float64, n int, averagedSlip *float64) {
	var sum float64
	for i := 0; i < n; i++ {
		sum += tmpSlip[i]
	}
	*averagedSlip += sum / float64(n)
}
