package types

import "time"

// PixelFormat identifies the layout of Frame.Data
type PixelFormat int

// PixelFormat constants (values match the capture daemon's shared memory header)
const (
	FormatJPEG PixelFormat = 0
	FormatNV12 PixelFormat = 1
	FormatRGB  PixelFormat = 2
	FormatH264 PixelFormat = 3
)

// String returns the format name
func (f PixelFormat) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatNV12:
		return "nv12"
	case FormatRGB:
		return "rgb"
	case FormatH264:
		return "h264"
	default:
		return "unknown"
	}
}

// Frame represents one raw camera image handed to pose inference
type Frame struct {
	Data      []byte      // Pixel data, tightly packed rows
	Timestamp time.Time   // Frame capture timestamp
	Seq       uint64      // Sequential frame number
	Width     int         // Frame width
	Height    int         // Frame height
	Format    PixelFormat // Layout of Data
}

// Stride returns the row length in bytes for packed RGB frames
func (f *Frame) Stride() int {
	return f.Width * 3
}

// Valid reports whether Data is large enough for the declared RGB dimensions
func (f *Frame) Valid() bool {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return false
	}
	if f.Format != FormatRGB {
		return len(f.Data) > 0
	}
	return len(f.Data) >= f.Stride()*f.Height
}
