package station

import (
	"context"
	"fmt"
	"math"
	"sync"

	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/specialistvlad/sweepgrid/internal/instrument"
)

// analyzer simulates a spectrum analyzer sampling a sine tone.
type analyzer struct {
	mu         sync.Mutex
	points     int
	sampleRate float64
	frequency  float64
	amplitude  float64
}

// NewSpectrumAnalyzer builds a simulated analyzer with settable "frequency"
// and "amplitude" of its input tone and an array-valued "spectrum" of
// points/2 magnitude bins over a "frequency_bins" axis.
func NewSpectrumAnalyzer(name string, points int, sampleRate float64) (*instrument.Instrument, error) {
	if points < 2 || points%2 != 0 {
		return nil, fmt.Errorf("spectrum analyzer %s: points must be even and at least 2, got %d", name, points)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("spectrum analyzer %s: sample rate must be positive", name)
	}
	a := &analyzer{points: points, sampleRate: sampleRate, frequency: sampleRate / 8, amplitude: 1}

	bins := make([]float64, points/2)
	for k := range bins {
		bins[k] = float64(k) * sampleRate / float64(points)
	}

	in := instrument.New(name)
	params := []instrument.Bindable{
		instrument.NewParameter("frequency",
			instrument.WithUnit("Hz"),
			instrument.WithBounds(0, sampleRate/2),
			instrument.WithInitial(a.frequency),
			instrument.WithSetter(func(_ context.Context, v float64) error {
				a.mu.Lock()
				a.frequency = v
				a.mu.Unlock()
				return nil
			}),
		),
		instrument.NewParameter("amplitude",
			instrument.WithUnit("V"),
			instrument.WithBounds(0, 10),
			instrument.WithInitial(a.amplitude),
			instrument.WithSetter(func(_ context.Context, v float64) error {
				a.mu.Lock()
				a.amplitude = v
				a.mu.Unlock()
				return nil
			}),
		),
		instrument.NewArrayParameter("spectrum", []int{points / 2},
			[]instrument.SetpointAxis{{Name: "frequency_bins", Label: "Frequency", Unit: "Hz", Values: bins}},
			a.spectrum,
			instrument.WithUnit("V"),
			instrument.WithLabel("Magnitude"),
		),
	}
	for _, p := range params {
		if err := in.AddParameter(p); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// spectrum returns the single-sided magnitude spectrum of one frame.
func (a *analyzer) spectrum(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	n, fs, f, amp := a.points, a.sampleRate, a.frequency, a.amplitude
	a.mu.Unlock()

	signal := make([]float64, n)
	for i := range signal {
		signal[i] = amp * math.Sin(2*math.Pi*f*float64(i)/fs)
	}

	half := n / 2
	re := make([]float64, half)
	im := make([]float64, half)
	for k := 0; k < half; k++ {
		for i, s := range signal {
			phase := 2 * math.Pi * float64(k*i) / float64(n)
			re[k] += s * math.Cos(phase)
			im[k] -= s * math.Sin(phase)
		}
	}

	mag := make([]float64, half)
	vecmath.Magnitude(mag, re, im)
	out := make([]float64, half)
	vecmath.ScaleBlock(out, mag, 2/float64(n))
	return out, nil
}
