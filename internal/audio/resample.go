package audio

import "math"

// Windowed-sinc kernel parameters. zeroCrossings is the number of sinc
// lobes kept on each side of the output position at full bandwidth.
const zeroCrossings = 16

// Resample changes the buffer's length to frames sample frames per channel
// with a band-limited windowed-sinc interpolator. When shrinking, the kernel
// cutoff drops to the new Nyquist limit so the result does not alias. The
// sample rate value is left unchanged.
func Resample(b *Buffer, frames int) *Buffer {
	if frames < 0 {
		frames = 0
	}
	if frames == b.Frames() {
		return b.Clone()
	}
	if b.Channels <= 0 || b.Frames() == 0 || frames == 0 {
		return b.withSamples(make([]float64, frames*max(b.Channels, 0)))
	}

	chans := make([][]float64, b.Channels)
	for c := range b.Channels {
		chans[c] = resampleChannel(b.channel(c), frames)
	}
	return b.withSamples(interleave(chans))
}

// RhythmChange speeds up (factor > 1) or slows down (factor < 1) the buffer by
// resampling it to round(frames/factor) frames at the same nominal rate.
// Non-positive factors are treated as 1.
func RhythmChange(b *Buffer, factor float64) *Buffer {
	if factor <= 0 || factor == 1.0 {
		return b.Clone()
	}
	return Resample(b, int(math.Round(float64(b.Frames())/factor)))
}

// ResampleRate converts the buffer to a new sample rate, keeping its duration.
func ResampleRate(b *Buffer, rate int) *Buffer {
	if rate == b.SampleRate || b.SampleRate <= 0 {
		out := b.Clone()
		out.SampleRate = rate
		return out
	}
	frames := int(math.Round(float64(b.Frames()) * float64(rate) / float64(b.SampleRate)))
	out := Resample(b, frames)
	out.SampleRate = rate
	return out
}

func resampleChannel(x []float64, num int) []float64 {
	n := len(x)
	out := make([]float64, num)

	step := float64(n) / float64(num)
	fc := math.Min(1, float64(num)/float64(n))
	half := float64(zeroCrossings) / fc

	for i := range out {
		t := float64(i) * step
		lo := max(int(math.Ceil(t-half)), 0)
		hi := min(int(math.Floor(t+half)), n-1)

		var acc, wsum float64
		for k := lo; k <= hi; k++ {
			d := t - float64(k)
			w := fc * sinc(fc*d) * blackman(d/half)
			acc += x[k] * w
			wsum += w
		}
		if math.Abs(wsum) > 1e-9 {
			acc /= wsum
		}
		out[i] = acc
	}
	return out
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// blackman evaluates a Blackman window centred on 0 over [-1, 1].
func blackman(x float64) float64 {
	if x <= -1 || x >= 1 {
		return 0
	}
	return 0.42 + 0.5*math.Cos(math.Pi*x) + 0.08*math.Cos(2*math.Pi*x)
}
