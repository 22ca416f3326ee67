package raster

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrOutOfBounds      = errors.New("coordinates out of bounds")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// MaxDimension bounds either side of a buffer.
const MaxDimension = 32768

func ValidateBufferForOperation(buf *Buffer, operation string) error {
	if buf == nil {
		return errors.Wrapf(ErrInvalidArgument, "buffer is nil for operation: %s", operation)
	}

	if buf.width <= 0 || buf.height <= 0 || len(buf.data) < buf.stride*buf.height {
		return errors.Wrapf(ErrInvalidDimension, "buffer has invalid dimensions %dx%d for operation: %s",
			buf.width, buf.height, operation)
	}

	return nil
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrInvalidDimension, "invalid dimensions %dx%d for operation: %s", width, height, operation)
	}

	if width > MaxDimension || height > MaxDimension {
		return errors.Wrapf(ErrInvalidDimension, "dimensions %dx%d exceed maximum size for operation: %s",
			width, height, operation)
	}

	return nil
}

// ValidateSameGeometry fails unless a and b can be compared pixel for pixel.
func ValidateSameGeometry(a, b *Buffer, operation string) error {
	if err := ValidateBufferForOperation(a, operation); err != nil {
		return err
	}
	if err := ValidateBufferForOperation(b, operation); err != nil {
		return err
	}
	if a.width != b.width || a.height != b.height {
		return errors.Wrapf(ErrInvalidDimension, "buffer sizes differ: %dx%d vs %dx%d for operation: %s",
			a.width, a.height, b.width, b.height, operation)
	}
	if a.bytesPerPixel != b.bytesPerPixel {
		return errors.Wrapf(ErrInvalidArgument, "pixel formats differ: %d vs %d bytes for operation: %s",
			a.bytesPerPixel, b.bytesPerPixel, operation)
	}
	return nil
}
