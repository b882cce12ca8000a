package facecrop

import "image"

// grayscale converts the image to the single channel, row major
// pixel layout expected by the classifier.
func grayscale(src *image.NRGBA) []uint8 {
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	gray := make([]uint8, width*height)

	for y := 0; y < height; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+width*4]
		for x := 0; x < width; x++ {
			r, g, b := int(row[x*4]), int(row[x*4+1]), int(row[x*4+2])
			gray[y*width+x] = uint8((299*r + 587*g + 114*b) / 1000)
		}
	}
	return gray
}
