package builder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is image sample data ready to become an image XObject. Data holds
// raw samples unless Filter names the encoding the bytes already carry.
type Image struct {
	Width            int
	Height           int
	ColorSpace       string
	BitsPerComponent int
	Filter           string
	Data             []byte
	SMask            *Image
}

// DecodeImage prepares encoded image bytes for embedding. Baseline RGB and
// gray JPEGs pass through untouched; everything else is decoded to RGB
// samples with an alpha soft mask when any pixel is translucent.
func DecodeImage(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has no pixels")
	}
	if format == "jpeg" {
		switch cfg.ColorModel {
		case color.GrayModel:
			return &Image{Width: cfg.Width, Height: cfg.Height, ColorSpace: "DeviceGray", BitsPerComponent: 8, Filter: "DCTDecode", Data: data}, nil
		case color.YCbCrModel, color.RGBAModel:
			return &Image{Width: cfg.Width, Height: cfg.Height, ColorSpace: "DeviceRGB", BitsPerComponent: 8, Filter: "DCTDecode", Data: data}, nil
		}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", format, err)
	}
	return FromImage(img), nil
}

// FromImage converts a decoded image to RGB samples, attaching a gray soft
// mask when the image has transparency.
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	pixels := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	translucent := false
	for i := 0; i < w*h; i++ {
		px := nrgba.Pix[i*4 : i*4+4]
		pixels = append(pixels, px[0], px[1], px[2])
		alpha = append(alpha, px[3])
		if px[3] < 255 {
			translucent = true
		}
	}

	img := &Image{Width: w, Height: h, ColorSpace: "DeviceRGB", BitsPerComponent: 8, Data: pixels}
	if translucent {
		img.SMask = &Image{Width: w, Height: h, ColorSpace: "DeviceGray", BitsPerComponent: 8, Data: alpha}
	}
	return img
}
