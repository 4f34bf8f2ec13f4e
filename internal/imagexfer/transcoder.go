package imagexfer

import (
	"image"
	"image/color"
	_ "image/gif"  // register GIF with image.Decode
	_ "image/jpeg" // register JPEG with image.Decode
	_ "image/png"  // register PNG with image.Decode
	"io"

	_ "golang.org/x/image/bmp"  // register BMP with image.Decode
	_ "golang.org/x/image/webp" // register WebP with image.Decode
	"golang.org/x/image/draw"

	"github.com/dragoncraft87/scarab-host/internal/scarabio"
)

// Decode reads any of PNG/JPEG/GIF/BMP/WebP from r and returns the decoded
// image. The format set matches spec.md §4.5: PNG/JPEG/GIF come from the
// standard library, BMP and WebP from golang.org/x/image - the same pairing
// the ssd1306 example points at ("use one of the various high quality Go
// packages available") when stdlib alone isn't enough. ImageDecodeFailed
// per spec.md §7 wraps any decode error.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, scarabio.Wrap(scarabio.KindImageDecodeFailed, "decode raster image", err)
	}
	return img, nil
}

// Transcode runs the full algorithm of spec.md §4.5: decode (already done
// by the caller via Decode) -> no-upscale resize -> center-composite onto a
// 240x240 transparent canvas -> planar RGB565A8 encode -> header + CRC32.
func Transcode(src image.Image) (Artifact, error) {
	toPlace := applyNoUpscaleRule(src)

	c := newCanvas()
	offsetX, offsetY := centerOffset(toPlace.Bounds().Dx(), toPlace.Bounds().Dy())
	compositeOnto(c, toPlace, offsetX, offsetY)

	return buildArtifact(c.rgb, c.alpha), nil
}

// applyNoUpscaleRule implements spec.md §4.5 step 2: if the source already
// fits within 240x240 it is kept at native size (even if smaller in only
// one dimension); otherwise it is downscaled by the single uniform factor
// that fits both dimensions, using a bicubic-equivalent kernel.
func applyNoUpscaleRule(src image.Image) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw <= Width && sh <= Height {
		return toNRGBA(src)
	}

	scale := minFloat(float64(Width)/float64(sw), float64(Height)/float64(sh))
	dw := int(float64(sw) * scale)
	dh := int(float64(sh) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// toNRGBA returns src as an NRGBA image: an *image.NRGBA is returned as is,
// anything else is copied pixel-for-pixel into a new NRGBA image with no
// blending, so every RGBA channel round-trips exactly - required for the
// pixel-encoding law (spec.md §8 property 4) to hold on unscaled inputs.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst.SetNRGBA(x, y, c)
		}
	}
	return dst
}

// centerOffset computes the floor-division centering offset of spec.md
// §4.5 step 3.
func centerOffset(w, h int) (x, y int) {
	return (Width - w) / 2, (Height - h) / 2
}

// compositeOnto places img onto c at (offsetX, offsetY) with a verbatim
// pixel copy (no alpha blending): c starts fully transparent black, so
// copying is equivalent to, and exact about, Porter-Duff "over" without
// the rounding a blend would introduce.
func compositeOnto(c *canvas, img image.Image, offsetX, offsetY int) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			clr := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c.Set(offsetX+x, offsetY+y, clr.R, clr.G, clr.B, clr.A)
		}
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
