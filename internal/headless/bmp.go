package headless

import "encoding/binary"

// bmpHeaderSize is the 14-byte file header plus the 40-byte BITMAPINFOHEADER
// (a 54-byte header).
const bmpHeaderSize = 54

// encodeBMP wraps tightly-packed top-down BGRA pixel data (width*height*4
// bytes, row 0 = top row) in a 32bpp uncompressed BMP container. This
// no library dependency encodes BMP (golang.org/x/image, the only
// image codec dependency in play, only decodes it), so the header is
// hand-assembled the way vulkan-go-asche pokes raw bytes into GPU
// buffers (gpubuf.go, adapted from vulkan-go-asche/extensions.go's
// Memcopy use).
func encodeBMP(width, height int, bgra []byte) []byte {
	pixelBytes := width * height * 4
	out := make([]byte, bmpHeaderSize+pixelBytes)

	// BITMAPFILEHEADER
	out[0], out[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(out[2:], uint32(len(out)))
	binary.LittleEndian.PutUint32(out[10:], bmpHeaderSize)

	// BITMAPINFOHEADER
	binary.LittleEndian.PutUint32(out[14:], 40)
	binary.LittleEndian.PutUint32(out[18:], uint32(width))
	// A negative height marks the pixel array top-down rather than BMP's
	// native bottom-up order, matching the swapchain's row order as-is.
	binary.LittleEndian.PutUint32(out[22:], uint32(int32(-int32(height))))
	binary.LittleEndian.PutUint16(out[26:], 1)  // planes
	binary.LittleEndian.PutUint16(out[28:], 32) // bpp
	binary.LittleEndian.PutUint32(out[34:], uint32(pixelBytes))

	copy(out[bmpHeaderSize:], bgra)
	return out
}
