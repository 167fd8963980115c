package camera

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

// Options shape frames before inference. Zero values leave the frame alone.
type Options struct {
	FlipHorizontal bool
	Width          int // Target width (0 keeps the source width)
	Height         int // Target height (0 keeps the source height)
}

func (o Options) identity(f *types.Frame) bool {
	return !o.FlipHorizontal &&
		(o.Width == 0 || o.Width == f.Width) &&
		(o.Height == 0 || o.Height == f.Height)
}

// Preprocess returns a new RGB frame resized and optionally mirrored per
// opts. The input frame is never modified.
func Preprocess(f *types.Frame, opts Options) (*types.Frame, error) {
	if opts.identity(f) {
		return f, nil
	}
	if f.Format != types.FormatRGB {
		return nil, fmt.Errorf("preprocess: unsupported format %s", f.Format)
	}
	if !f.Valid() {
		return nil, fmt.Errorf("preprocess: frame %d has %d bytes for %dx%d", f.Seq, len(f.Data), f.Width, f.Height)
	}

	w, h := f.Width, f.Height
	if opts.Width > 0 {
		w = opts.Width
	}
	if opts.Height > 0 {
		h = opts.Height
	}

	src := rgbToImage(f)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == f.Width && h == f.Height {
		draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	if opts.FlipHorizontal {
		mirror(dst)
	}

	out := *f
	out.Width = w
	out.Height = h
	out.Data = imageToRGB(dst)
	return &out, nil
}

func rgbToImage(f *types.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	stride := f.Stride()
	for y := 0; y < f.Height; y++ {
		row := f.Data[y*stride : (y+1)*stride]
		pix := img.Pix[y*img.Stride:]
		for x := 0; x < f.Width; x++ {
			pix[x*4+0] = row[x*3+0]
			pix[x*4+1] = row[x*3+1]
			pix[x*4+2] = row[x*3+2]
			pix[x*4+3] = 0xff
		}
	}
	return img
}

func imageToRGB(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		pix := img.Pix[y*img.Stride:]
		row := out[y*w*3:]
		for x := 0; x < w; x++ {
			row[x*3+0] = pix[x*4+0]
			row[x*3+1] = pix[x*4+1]
			row[x*3+2] = pix[x*4+2]
		}
	}
	return out
}

func mirror(img *image.RGBA) {
	w := img.Bounds().Dx()
	for y := 0; y < img.Bounds().Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			for c := 0; c < 4; c++ {
				row[l*4+c], row[r*4+c] = row[r*4+c], row[l*4+c]
			}
		}
	}
}
