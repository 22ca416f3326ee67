package conversion

import (
	"fmt"
	"runtime"

	"gocv.io/x/gocv"

	"rasterkit/internal/raster"
)

// BufferFromMat copies an 8-bit Mat into a raster buffer. Single-channel
// Mats are expanded to BGR, three-channel Mats map to BGR and four-channel
// Mats to BGRA.
func BufferFromMat(src gocv.Mat) (*raster.Buffer, error) {
	if err := validateMat(src, "Mat to buffer conversion"); err != nil {
		return nil, err
	}

	mat := src
	switch src.Type() {
	case gocv.MatTypeCV8UC1:
		expanded := gocv.NewMat()
		defer expanded.Close()
		gocv.CvtColor(src, &expanded, gocv.ColorGrayToBGR)
		mat = expanded
	case gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return nil, fmt.Errorf("unsupported Mat type %v: %w", src.Type(), raster.ErrInvalidArgument)
	}

	if !mat.IsContinuous() {
		continuous := mat.Clone()
		defer continuous.Close()
		mat = continuous
	}

	channels := mat.Channels()
	data, err := mat.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("Mat data access failed: %w", err)
	}

	buf, err := raster.FromBytes(data, mat.Cols(), mat.Rows(), mat.Cols()*channels, channels)
	runtime.KeepAlive(mat)
	if err != nil {
		return nil, fmt.Errorf("buffer creation failed: %w", err)
	}
	return buf, nil
}

// BufferToMat copies buf into a new Mat of type CV_8UC3 or CV_8UC4.
// The caller owns the returned Mat and must Close it.
func BufferToMat(buf *raster.Buffer) (gocv.Mat, error) {
	if err := raster.ValidateBufferForOperation(buf, "buffer to Mat conversion"); err != nil {
		return gocv.NewMat(), err
	}

	matType := gocv.MatTypeCV8UC3
	if buf.HasAlpha() {
		matType = gocv.MatTypeCV8UC4
	}

	packed := make([]byte, 0, buf.Width()*buf.Height()*buf.BytesPerPixel())
	for y := 0; y < buf.Height(); y++ {
		packed = append(packed, buf.Row(y)...)
	}

	view, err := gocv.NewMatFromBytes(buf.Height(), buf.Width(), matType, packed)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("Mat creation failed: %w", err)
	}
	defer view.Close()

	// The view may share packed; clone so the Mat owns its pixels.
	dst := view.Clone()
	runtime.KeepAlive(packed)

	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("Mat clone is empty: %w", raster.ErrInvalidDimension)
	}
	return dst, nil
}

// ConvertToGrayscale returns a single-channel copy of buf's luminance as
// computed by OpenCV, expanded back to buf's pixel format.
func ConvertToGrayscale(buf *raster.Buffer) (*raster.Buffer, error) {
	src, err := BufferToMat(buf)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	code := gocv.ColorBGRToGray
	if buf.HasAlpha() {
		code = gocv.ColorBGRAToGray
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, code)

	out, err := BufferFromMat(gray)
	if err != nil {
		return nil, err
	}
	if !buf.HasAlpha() {
		return out, nil
	}

	// Restore the source alpha channel
	withAlpha := buf.Clone()
	for y := 0; y < buf.Height(); y++ {
		in := out.Row(y)
		dst := withAlpha.Row(y)
		for x := 0; x < buf.Width(); x++ {
			copy(dst[4*x:4*x+3], in[3*x:3*x+3])
		}
	}
	return withAlpha, nil
}

func validateMat(mat gocv.Mat, operation string) error {
	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation %s: %w", operation, raster.ErrInvalidArgument)
	}
	if mat.Rows() <= 0 || mat.Cols() <= 0 {
		return fmt.Errorf("Mat has invalid dimensions %dx%d for operation %s: %w",
			mat.Cols(), mat.Rows(), operation, raster.ErrInvalidDimension)
	}
	return nil
}
