package dataset

import "math"

const bytesPerMB = 1024 * 1024

// ComputeImpact derives a bounded popularity score from dataset
// metadata. Byte size wins over sample count when both are known; the
// logarithm keeps very large datasets from dominating linearly.
func ComputeImpact(sizeBytes, numSamples *int64) float64 {
	if sizeBytes != nil && *sizeBytes != 0 {
		mb := float64(*sizeBytes) / bytesPerMB
		return round2(math.Log10(mb+1) * 10)
	}
	if numSamples != nil && *numSamples != 0 {
		return round2(math.Log10(float64(*numSamples)+1) * 10)
	}
	return 0.0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
