package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	coverWidth  = 1800
	coverHeight = 2700 // 2:3, the usual book cover aspect
	coverBorder = 100

	titleFontSize  = 160
	authorFontSize = 120
)

// GenerateCover renders the synthesized cover bitmap: white canvas, a subtle
// gradient frame, the word-wrapped title centered in the upper third with a
// drop shadow, and the author line below in secondary gray. Identical inputs
// produce identical pixels; the fonts are embedded, so the basicfont branch
// only runs if the embedded faces fail to parse.
func GenerateCover(title, authors string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, coverWidth, coverHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	drawFrame(img)

	titleFace := loadFace(gobold.TTF, titleFontSize)
	authorFace := loadFace(goregular.TTF, authorFontSize)

	margin := coverWidth / 6
	maxWidth := coverWidth - 2*margin

	shadowGray := color.RGBA{100, 100, 100, 255}
	authorGray := color.RGBA{80, 80, 80, 255}

	y := coverHeight / 3
	for _, line := range wrapText(title, titleFace, maxWidth) {
		w := font.MeasureString(titleFace, line).Ceil()
		x := (coverWidth - w) / 2
		drawString(img, line, titleFace, x+3, y+3, shadowGray)
		drawString(img, line, titleFace, x, y, color.RGBA{0, 0, 0, 255})
		y += titleFace.Metrics().Height.Ceil() + 20
	}

	y += 200
	for _, line := range wrapText(authors, authorFace, maxWidth) {
		w := font.MeasureString(authorFace, line).Ceil()
		drawString(img, line, authorFace, (coverWidth-w)/2, y, authorGray)
		y += authorFace.Metrics().Height.Ceil() + 20
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}

// drawFrame draws the border band: concentric one-pixel rectangles shading
// from mid gray to near white toward the inside.
func drawFrame(img *image.RGBA) {
	for i := 0; i < coverBorder; i++ {
		shade := uint8(200 + i/2)
		c := color.RGBA{shade, shade, shade, 255}
		x0, y0 := i, i
		x1, y1 := coverWidth-1-i, coverHeight-1-i
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y0, c)
			img.SetRGBA(x, y1, c)
		}
		for y := y0; y <= y1; y++ {
			img.SetRGBA(x0, y, c)
			img.SetRGBA(x1, y, c)
		}
	}
}

// loadFace parses an embedded OpenType font at the given size, falling back
// to the fixed basicfont face rather than failing the build.
func loadFace(ttf []byte, sizePt float64) font.Face {
	f, err := opentype.Parse(ttf)
	if err != nil {
		log.Printf("warning: embedded font unavailable, using fallback face: %v", err)
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePt,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("warning: embedded font unavailable, using fallback face: %v", err)
		return basicfont.Face7x13
	}
	return face
}

func drawString(img *image.RGBA, s string, face font.Face, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// wrapText splits text into lines that fit within maxWidth pixels when
// rendered with face. Words wider than the limit get a line of their own.
func wrapText(text string, face font.Face, maxWidth int) []string {
	fields := splitWords(text)
	if len(fields) == 0 {
		return nil
	}

	var lines []string
	current := fields[0]
	for _, word := range fields[1:] {
		trial := current + " " + word
		if font.MeasureString(face, trial).Ceil() <= maxWidth {
			current = trial
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

func splitWords(s string) []string {
	var words []string
	word := ""
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n':
			if word != "" {
				words = append(words, word)
				word = ""
			}
		default:
			word += string(r)
		}
	}
	if word != "" {
		words = append(words, word)
	}
	return words
}
