package cli

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gocv.io/x/gocv"

	"github.com/ayusman/colorhunt/internal/capture"
	"github.com/ayusman/colorhunt/internal/control"
	"github.com/ayusman/colorhunt/internal/filter"
	"github.com/ayusman/colorhunt/internal/render"
)

type applyOptions struct {
	output  string
	preset  string
	quality int

	band  filter.Band
	blend struct{ desaturate, highlight float32 }
}

func (r *root) newApplyCmd() *cobra.Command {
	cmd, _ := r.applyCommand()
	return cmd
}

// applyCommand builds the apply command and returns the options its flags
// fill in.
func (r *root) applyCommand() (*cobra.Command, *applyOptions) {
	opts := &applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply INPUT",
		Short: "Filter a still image or a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			params, err := r.applyParams(cmd.Context(), cmd.Flags(), *opts)
			if err != nil {
				return err
			}
			return filterFile(cmd.Context(), args[0], opts.output, params, opts.quality, cmd.ErrOrStderr())
		},
	}

	def := filter.DefaultBand()
	desat, highlight := filter.DefaultBlend().Percent()

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "Path to the output image or video")
	f.StringVarP(&opts.preset, "preset", "p", "", "Start from a saved preset")
	f.IntVarP(&opts.quality, "quality", "q", render.DefaultQuality, "JPEG quality for .jpg output")
	f.Float32Var(&opts.band.HueMin, "hue-min", def.HueMin, "Band start hue in degrees")
	f.Float32Var(&opts.band.HueMax, "hue-max", def.HueMax, "Band end hue in degrees; below hue-min wraps through red")
	f.Float32Var(&opts.band.SatMin, "sat-min", def.SatMin, "Minimum saturation percent")
	f.Float32Var(&opts.band.SatMax, "sat-max", def.SatMax, "Maximum saturation percent")
	f.Float32Var(&opts.blend.desaturate, "desaturate", desat, "Desaturation of pixels outside the band, percent")
	f.Float32Var(&opts.blend.highlight, "highlight", highlight, "Brightening of pixels inside the band, percent")
	cmd.MarkFlagRequired("output")
	return cmd, opts
}

// applyParams resolves the filter: defaults or the named preset, overridden
// by any filter flags given explicitly.
func (r *root) applyParams(ctx context.Context, flags *pflag.FlagSet, opts applyOptions) (filter.Params, error) {
	params := filter.DefaultParams()

	if opts.preset != "" {
		backend, err := r.openBackend(ctx)
		if err != nil {
			return params, err
		}
		p, err := backend.Presets().GetByName(ctx, opts.preset)
		if err != nil {
			return params, fmt.Errorf("preset %q: %w", opts.preset, err)
		}
		params.Band, params.Blend = p.Band(), p.Blend()
	}

	override := func(name string, dst *float32, v float32) {
		if opts.preset == "" || flags.Changed(name) {
			*dst = v
		}
	}
	override("hue-min", &params.Band.HueMin, opts.band.HueMin)
	override("hue-max", &params.Band.HueMax, opts.band.HueMax)
	override("sat-min", &params.Band.SatMin, opts.band.SatMin)
	override("sat-max", &params.Band.SatMax, opts.band.SatMax)

	d, h := params.Blend.Percent()
	override("desaturate", &d, opts.blend.desaturate)
	override("highlight", &h, opts.blend.highlight)
	params.Blend = filter.BlendFromPercent(d, h)

	if err := params.Band.Validate(); err != nil {
		return params, err
	}
	if err := params.Blend.Validate(); err != nil {
		return params, err
	}
	return params, nil
}

// filterFile renders input to output with params. Still images are
// detected by extension; anything else is read as video.
func filterFile(ctx context.Context, input, output string, params filter.Params, quality int, progress io.Writer) error {
	inAbs, _ := filepath.Abs(input)
	outAbs, _ := filepath.Abs(output)
	if inAbs == outAbs {
		return errors.New("input and output paths must be different")
	}
	if _, err := os.Stat(input); err != nil {
		return err
	}

	renderer := render.NewRenderer(quality)
	snap := control.Snapshot{Params: params}

	if capture.IsImageFile(input) {
		return filterImage(input, output, renderer, snap)
	}
	return filterVideo(ctx, input, output, renderer, snap, progress)
}

func filterImage(input, output string, renderer *render.Renderer, snap control.Snapshot) error {
	mat, err := capture.LoadImage(input)
	if err != nil {
		return err
	}
	defer mat.Close()

	img, err := renderer.Draw(&mat, snap)
	if err != nil {
		return err
	}
	return writeImage(output, img, renderer)
}

// writeImage saves JPEG output through the renderer's encoder so --quality
// applies, and other formats through OpenCV.
func writeImage(output string, img *image.RGBA, renderer *render.Renderer) error {
	switch filepath.Ext(output) {
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		data, err := renderer.Encode(img)
		if err != nil {
			return err
		}
		return os.WriteFile(output, data, 0644)
	}

	out, err := capture.FromRGBA(img)
	if err != nil {
		return err
	}
	defer out.Close()
	return capture.SaveImage(output, out)
}

func filterVideo(ctx context.Context, input, output string, renderer *render.Renderer, snap control.Snapshot, progress io.Writer) error {
	cam := capture.NewFileCamera(input)
	if err := cam.Open(); err != nil {
		return err
	}
	defer cam.Close()

	total := capture.VideoFrameCount(input)
	if total == 0 {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Filtering"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(progress) }),
	)

	var (
		writer  *gocv.VideoWriter
		written int
	)
	defer func() {
		if writer != nil {
			writer.Close()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		mat, err := cam.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			break
		}
		if errors.Is(err, capture.ErrEmptyFrame) {
			bar.Add(1)
			continue
		}
		if err != nil {
			return err
		}

		img, err := renderer.Draw(mat, snap)
		mat.Close()
		if err != nil {
			return err
		}

		if writer == nil {
			writer, err = capture.NewVideoWriter(output, cam.FPS(), img.Rect.Dx(), img.Rect.Dy())
			if err != nil {
				return err
			}
		}

		out, err := capture.FromRGBA(img)
		if err != nil {
			return err
		}
		err = writer.Write(out)
		out.Close()
		if err != nil {
			return fmt.Errorf("write frame %d: %w", written, err)
		}
		written++
		bar.Add(1)
	}

	bar.Finish()
	if written == 0 {
		return fmt.Errorf("%s: no frames decoded", input)
	}
	return nil
}
