// Package gonumplot renders a waveform with onset markers to an image
// file: the signal as a line over time, each onset as a dashed vertical
// line spanning the signal's amplitude range.
package gonumplot

import (
	"context"
	"fmt"
	"image/color"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechonset/pkg/audio"
	"github.com/xaionaro-go/speechonset/pkg/onsetdetection"
	"github.com/xaionaro-go/speechonset/pkg/waveplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

type Config struct {
	// OutputPath is where the image is written; the extension selects
	// the format (.png, .svg, .pdf, ...).
	OutputPath string

	// Width and Height of the rendered image.
	Width  vg.Length
	Height vg.Length

	// MaxPoints caps the amount of waveform points drawn; longer
	// signals are decimated. 0 means no cap.
	MaxPoints int
}

func DefaultConfig(outputPath string) Config {
	return Config{
		OutputPath: outputPath,
		Width:      14 * vg.Inch,
		Height:     4 * vg.Inch,
		MaxPoints:  1 << 14,
	}
}

type Renderer struct {
	Config Config
}

var _ waveplot.Renderer = (*Renderer)(nil)

func New(cfg Config) (*Renderer, error) {
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("an output path is mandatory")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("width and height must be positive: got %v x %v", cfg.Width, cfg.Height)
	}
	return &Renderer{Config: cfg}, nil
}

func (r *Renderer) Close() error {
	return nil
}

func (r *Renderer) RenderWaveform(
	ctx context.Context,
	input *audio.Buffer,
	onsets onsetdetection.Onsets,
) (_err error) {
	logger.Tracef(ctx, "RenderWaveform, len:%d, onsets:%d", input.Len(), len(onsets))
	defer func() { logger.Tracef(ctx, "/RenderWaveform: %v", _err) }()

	if input.Len() == 0 {
		return fmt.Errorf("the input buffer is empty")
	}
	if input.SampleRate == 0 {
		return fmt.Errorf("the input buffer does not define a sample rate")
	}

	p := plot.New()
	p.Title.Text = "Waveform with Onsets"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Amplitude"

	stride := 1
	if r.Config.MaxPoints > 0 && input.Len() > r.Config.MaxPoints {
		stride = (input.Len() + r.Config.MaxPoints - 1) / r.Config.MaxPoints
	}

	points := make(plotter.XYs, 0, input.Len()/stride+1)
	lowest, highest := math.Inf(1), math.Inf(-1)
	for idx := 0; idx < input.Len(); idx += stride {
		v := input.Samples[idx]
		lowest = math.Min(lowest, v)
		highest = math.Max(highest, v)
		points = append(points, plotter.XY{
			X: input.TimeAt(idx).Seconds(),
			Y: v,
		})
	}
	if highest <= lowest {
		// A flat signal still deserves visible marker lines.
		lowest, highest = -1, 1
	}

	waveform, err := plotter.NewLine(points)
	if err != nil {
		return fmt.Errorf("unable to build the waveform line: %w", err)
	}
	waveform.Color = color.RGBA{B: 196, A: 255}
	p.Add(waveform)
	p.Legend.Add("Waveform", waveform)

	for idx, onset := range onsets {
		marker, err := plotter.NewLine(plotter.XYs{
			{X: onset.Seconds(), Y: lowest},
			{X: onset.Seconds(), Y: highest},
		})
		if err != nil {
			return fmt.Errorf("unable to build the marker line for onset %d: %w", idx, err)
		}
		marker.Color = color.RGBA{R: 196, A: 255}
		marker.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(marker)
		if idx == 0 {
			p.Legend.Add("Onsets", marker)
		}
	}

	if err := p.Save(r.Config.Width, r.Config.Height, r.Config.OutputPath); err != nil {
		return fmt.Errorf("unable to save the plot to '%s': %w", r.Config.OutputPath, err)
	}
	logger.Debugf(ctx, "saved a %dx%d-point plot to '%s'", len(points), len(onsets), r.Config.OutputPath)
	return nil
}
