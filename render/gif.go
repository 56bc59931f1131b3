package render

import (
	"fmt"
	"image"
	stdpalette "image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"os"

	"golang.org/x/sync/errgroup"
)

// Animate stitches saved PNG plots into a looping GIF, one frame per file
// in order, delay in hundredths of a second. Frames are converted
// concurrently.
func Animate(
	pngs []string,
	out string,
	delay int,
) error {

	if len(pngs) == 0 {
		return fmt.Errorf("render: no frames for %s", out)
	}

	frames := make([]*image.Paletted, len(pngs))
	var g errgroup.Group
	for i, fname := range pngs {
		g.Go(func() error {
			img, err := openPNG(fname)
			if err != nil {
				return err
			}
			frames[i] = image.NewPaletted(img.Bounds(), stdpalette.Plan9)
			draw.Draw(frames[i], img.Bounds(), img, image.Point{}, draw.Over)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	delays := make([]int, len(frames))
	for i := range delays {
		delays[i] = delay
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := gif.EncodeAll(f, &gif.GIF{Image: frames, Delay: delays}); err != nil {
		f.Close()
		return fmt.Errorf("render: %s: %w", out, err)
	}
	return f.Close()
}

func openPNG(
	fname string,
) (
	image.Image, error,
) {

	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("render: %s: %w", fname, err)
	}
	return img, nil
}
