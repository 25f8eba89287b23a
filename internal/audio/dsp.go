package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean over all samples of all channels.
func Mean(b *Buffer) float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	return stat.Mean(b.Samples, nil)
}

// IntensityScale stretches or compresses the dynamic range around the
// buffer's own mean: y = mean + (x - mean) * factor. A factor of 1 returns
// an unmodified copy.
func IntensityScale(b *Buffer, factor float64) *Buffer {
	out := b.Clone()
	if factor == 1.0 || len(out.Samples) == 0 {
		return out
	}

	mean := Mean(b)
	floats.AddConst(-mean, out.Samples)
	floats.Scale(factor, out.Samples)
	floats.AddConst(mean, out.Samples)
	return out
}

// Gain multiplies every sample by a linear factor.
func Gain(b *Buffer, linear float64) *Buffer {
	out := b.Clone()
	floats.Scale(linear, out.Samples)
	return out
}

// DBToLinear converts a decibel gain to a linear amplitude multiplier.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// GainDB applies a gain given in decibels.
func GainDB(b *Buffer, db float64) *Buffer {
	return Gain(b, DBToLinear(db))
}

// RMS returns the root-mean-square level over all samples.
func RMS(b *Buffer) float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	return floats.Norm(b.Samples, 2) / math.Sqrt(float64(len(b.Samples)))
}

// Peak returns the largest absolute sample value.
func Peak(b *Buffer) float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	return math.Max(floats.Max(b.Samples), -floats.Min(b.Samples))
}
