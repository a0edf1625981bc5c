// Package silence decides which audio frames are silent and which are kept.
//
// The work happens in two steps. Estimate derives an amplitude threshold from
// the envelope of the recording, then BuildMask walks the envelope once and
// clears the frames that belong to silent runs long enough to be removed.
package silence

// Envelope reduces interleaved samples to one loudness value per frame: the
// absolute value for mono, the mean of absolute channel values otherwise.
// A trailing partial frame is ignored.
func Envelope(samples []int, channels int) []float64 {
	if channels < 1 {
		channels = 1
	}

	frames := len(samples) / channels
	env := make([]float64, frames)

	for f := 0; f < frames; f++ {
		var sum float64
		base := f * channels
		for c := 0; c < channels; c++ {
			v := samples[base+c]
			if v < 0 {
				v = -v
			}
			sum += float64(v)
		}
		env[f] = sum / float64(channels)
	}

	return env
}
