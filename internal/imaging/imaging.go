// Package imaging bridges raster buffers and the standard image package and
// resamples buffers with nfnt/resize.
package imaging

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"rasterkit/internal/raster"
)

// FromImage copies img into a BGRA buffer with straight alpha.
func FromImage(img image.Image) (*raster.Buffer, error) {
	if img == nil {
		return nil, errors.Wrap(raster.ErrInvalidArgument, "input image is nil")
	}

	bounds := img.Bounds()
	buf, err := raster.New(bounds.Dx(), bounds.Dy(), raster.BGRA)
	if err != nil {
		return nil, errors.Wrap(err, "image to buffer conversion")
	}

	switch typed := img.(type) {
	case *image.NRGBA:
		nrgbaToBuffer(typed, buf)
	case *image.Gray:
		grayToBuffer(typed, buf)
	default:
		genericToBuffer(img, buf)
	}

	return buf, nil
}

func nrgbaToBuffer(img *image.NRGBA, buf *raster.Buffer) {
	bounds := img.Bounds()
	for y := 0; y < buf.Height(); y++ {
		src := img.Pix[img.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		dst := buf.Row(y)
		for x := 0; x+4 <= len(dst); x += 4 {
			dst[x], dst[x+1], dst[x+2], dst[x+3] = src[x+2], src[x+1], src[x], src[x+3]
		}
	}
}

func grayToBuffer(img *image.Gray, buf *raster.Buffer) {
	bounds := img.Bounds()
	for y := 0; y < buf.Height(); y++ {
		src := img.Pix[img.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		dst := buf.Row(y)
		for x := 0; x < buf.Width(); x++ {
			v := src[x]
			dst[4*x], dst[4*x+1], dst[4*x+2], dst[4*x+3] = v, v, v, 255
		}
	}
}

func genericToBuffer(img image.Image, buf *raster.Buffer) {
	bounds := img.Bounds()
	for y := 0; y < buf.Height(); y++ {
		dst := buf.Row(y)
		for x := 0; x < buf.Width(); x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			dst[4*x], dst[4*x+1], dst[4*x+2], dst[4*x+3] = c.B, c.G, c.R, c.A
		}
	}
}

// ToImage copies buf into an NRGBA image. BGR buffers come out opaque.
func ToImage(buf *raster.Buffer) (*image.NRGBA, error) {
	if err := raster.ValidateBufferForOperation(buf, "buffer to image conversion"); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, buf.Width(), buf.Height()))
	bpp := buf.BytesPerPixel()

	for y := 0; y < buf.Height(); y++ {
		src := buf.Row(y)
		dst := img.Pix[y*img.Stride : y*img.Stride+4*buf.Width()]
		for x, i := 0, 0; i+bpp <= len(src); x, i = x+4, i+bpp {
			dst[x], dst[x+1], dst[x+2] = src[i+2], src[i+1], src[i]
			if bpp == raster.BGRA {
				dst[x+3] = src[i+3]
			} else {
				dst[x+3] = 255
			}
		}
	}

	return img, nil
}

// Resize resamples buf to width x height with Lanczos3. A zero width or
// height keeps the aspect ratio. The result has buf's pixel format.
func Resize(buf *raster.Buffer, width, height int) (*raster.Buffer, error) {
	if err := raster.ValidateBufferForOperation(buf, "resize"); err != nil {
		return nil, err
	}
	if width < 0 || height < 0 || (width == 0 && height == 0) {
		return nil, errors.Wrapf(raster.ErrInvalidDimension, "invalid resize target %dx%d", width, height)
	}
	if width > raster.MaxDimension || height > raster.MaxDimension {
		return nil, errors.Wrapf(raster.ErrInvalidDimension, "resize target %dx%d exceeds maximum size", width, height)
	}

	img, err := ToImage(buf)
	if err != nil {
		return nil, err
	}

	resized, err := FromImage(resize.Resize(uint(width), uint(height), img, resize.Lanczos3))
	if err != nil {
		return nil, errors.Wrap(err, "resize")
	}

	if buf.BytesPerPixel() == raster.BGRA {
		return resized, nil
	}
	return dropAlpha(resized)
}

func dropAlpha(src *raster.Buffer) (*raster.Buffer, error) {
	dst, err := raster.New(src.Width(), src.Height(), raster.BGR)
	if err != nil {
		return nil, err
	}
	for y := 0; y < src.Height(); y++ {
		in := src.Row(y)
		out := dst.Row(y)
		for x := 0; x < src.Width(); x++ {
			copy(out[3*x:3*x+3], in[4*x:4*x+3])
		}
	}
	return dst, nil
}
