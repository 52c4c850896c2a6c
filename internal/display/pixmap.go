package display

import (
	"fmt"
	"image"
)

// encodeZPixmap converts an RGBA frame into the server's ZPixmap layout.
// Each scanline is padded to scanlinePad bytes; pixels are BGR(x) in
// visual mask order 0xff (B), 0xff00 (G), 0xff0000 (R).
func encodeZPixmap(img *image.RGBA, bytesPerPixel, scanlinePad int, depth byte) ([]byte, int, error) {
	if bytesPerPixel != 3 && bytesPerPixel != 4 {
		return nil, 0, fmt.Errorf("unsupported bytes per pixel: %d", bytesPerPixel)
	}
	if scanlinePad <= 0 {
		scanlinePad = 1
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	unpadded := width * bytesPerPixel
	stride := ((unpadded + scanlinePad - 1) / scanlinePad) * scanlinePad

	data := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		srcRow := img.Pix[img.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		dstRow := data[y*stride:]
		for x := 0; x < width; x++ {
			si := x * 4
			di := x * bytesPerPixel
			dstRow[di] = srcRow[si+2]   // B
			dstRow[di+1] = srcRow[si+1] // G
			dstRow[di+2] = srcRow[si]   // R
			if bytesPerPixel == 4 && depth == 32 {
				dstRow[di+3] = srcRow[si+3]
			}
		}
	}
	return data, stride, nil
}

// bandRows returns how many scanlines fit into one PutImage request of at most
// maxRequestBytes, never less than one
func bandRows(maxRequestBytes, stride, height int) int {
	const putImageHeader = 24
	if stride <= 0 {
		return max(height, 1)
	}
	rows := (maxRequestBytes - putImageHeader) / stride
	if rows < 1 {
		rows = 1
	}
	return min(rows, max(height, 1))
}
