package vidra

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rivo/uniseg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/Sansa-Organisation/vidra-sub000/webcapture"
)

// Renderer produces the unmasked, unfiltered content buffer for a layer at
// its natural size, before transform/effects/mask are applied. It bundles the decode/lookup dependencies content
// rendering needs: asset registry, font cache, image cache, video decoder, and
// an optional web capture backend for Web content.
type Renderer struct {
	Assets *AssetRegistry
	Fonts  *fontCache
	Images *imageCache
	Video  *VideoDecoder
	Web    webcapture.Backend // nil unless WithWebBackend is used; ContentWeb errors without one
}

// NewRenderer wires a renderer against a project's asset registry.
func NewRenderer(assets *AssetRegistry) *Renderer {
	return &Renderer{
		Assets: assets,
		Fonts:  newFontCache(),
		Images: newImageCache(),
		Video:  NewVideoDecoder(),
	}
}

// WithWebBackend attaches a webcapture.Backend so ContentWeb layers render
// instead of erroring. Returns r for chaining.
func (r *Renderer) WithWebBackend(backend webcapture.Backend) *Renderer {
	r.Web = backend
	return r
}

// RenderContent dispatches on c.Kind and returns the rendered buffer sized
// to naturalSize; canvasW/canvasH give the canvas dimensions for
// full-canvas content kinds (Solid, Shader).
func (r *Renderer) RenderContent(c Content, naturalSize Point2D, canvasW, canvasH int, timeSeconds float64) (*FrameBuffer, error) {
	w, h := int(naturalSize.X), int(naturalSize.Y)
	switch c.Kind {
	case ContentEmpty:
		return NewFrameBuffer(maxInt(w, 1), maxInt(h, 1)), nil
	case ContentSolid:
		return SolidFrameBuffer(maxInt(canvasW, 1), maxInt(canvasH, 1), c.Color), nil
	case ContentText, ContentAutoCaption:
		return r.renderText(c, w, h)
	case ContentImage:
		return r.renderImage(c)
	case ContentSpritesheet:
		return r.renderSpritesheetFrame(c, timeSeconds)
	case ContentVideo:
		return r.renderVideoFrame(c, timeSeconds)
	case ContentShape:
		return renderShape(c, w, h)
	case ContentWaveform:
		// Placeholder flat waveform: real amplitude data is supplied by the
		// caller via expression-driven animations on other properties;
		// the content renderer itself just allocates the drawing surface.
		return SolidFrameBuffer(maxInt(c.WaveW, 1), maxInt(c.WaveH, 1), ColorTransparent), nil
	case ContentAudio, ContentTTS:
		// Audio-only content contributes nothing to the visual frame.
		return NewFrameBuffer(1, 1), nil
	case ContentShader:
		return SolidFrameBuffer(maxInt(canvasW, 1), maxInt(canvasH, 1), ColorTransparent), nil
	case ContentWeb:
		return r.renderWeb(c, timeSeconds)
	}
	return nil, renderErrorf("content", fmt.Errorf("unknown content kind %d", c.Kind))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// --- Solid / full-canvas anchor rule ---

// IsFullCanvas reports whether a content kind ignores the layer's anchor and
// always covers the full scene canvas.
func IsFullCanvas(k ContentKind) bool {
	return k == ContentSolid || k == ContentShader
}

// --- Shape ---

func renderShape(c Content, w, h int) (*FrameBuffer, error) {
	fb := NewFrameBuffer(maxInt(w, 1), maxInt(h, 1))
	fill := ColorTransparent
	if c.Fill != nil {
		fill = *c.Fill
	}
	switch c.Shape {
	case ShapeRect:
		fb.Fill(fill)
	case ShapeCircle, ShapeEllipse:
		cx, cy := float64(fb.Width)/2, float64(fb.Height)/2
		rx, ry := cx, cy
		for y := 0; y < fb.Height; y++ {
			for x := 0; x < fb.Width; x++ {
				nx, ny := (float64(x)+0.5-cx)/rx, (float64(y)+0.5-cy)/ry
				if nx*nx+ny*ny <= 1 {
					fb.Set(x, y, fill)
				}
			}
		}
	}
	if c.Stroke != nil && c.StrokeWidth > 0 {
		strokeShapeOutline(fb, c, *c.Stroke)
	}
	return fb, nil
}

// strokeShapeOutline draws a simple inset border of c.StrokeWidth pixels.
func strokeShapeOutline(fb *FrameBuffer, c Content, stroke Color) {
	sw := int(c.StrokeWidth)
	if sw < 1 {
		sw = 1
	}
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			if x < sw || y < sw || x >= fb.Width-sw || y >= fb.Height-sw {
				if fb.At(x, y).A > 0 {
					fb.Set(x, y, stroke)
				}
			}
		}
	}
}

// --- Image ---

func (r *Renderer) renderImage(c Content) (*FrameBuffer, error) {
	asset, ok := r.Assets.Lookup(c.AssetID)
	if !ok {
		log.Printf("vidra: image asset %q not found, using fallback color", c.AssetID)
		return SolidFrameBuffer(64, 64, ColorMagenta), nil
	}
	return r.Images.getOrLoad(c.AssetID, func() (*FrameBuffer, error) {
		fb, err := DecodeImageFile(asset.Path)
		if err != nil {
			log.Printf("vidra: decoding image %q: %v, using fallback color", asset.Path, err)
			return SolidFrameBuffer(64, 64, ColorMagenta), nil
		}
		return fb, nil
	})
}

func (r *Renderer) renderSpritesheetFrame(c Content, timeSeconds float64) (*FrameBuffer, error) {
	sheet, err := r.renderImage(c)
	if err != nil {
		return nil, err
	}
	if c.FrameW <= 0 || c.FrameH <= 0 {
		return sheet, nil
	}
	cols := sheet.Width / c.FrameW
	if cols < 1 {
		cols = 1
	}
	totalFrames := (sheet.Width / c.FrameW) * (sheet.Height / c.FrameH)
	if c.FrameCount != nil && *c.FrameCount < totalFrames {
		totalFrames = *c.FrameCount
	}
	if totalFrames < 1 {
		totalFrames = 1
	}
	frameIdx := c.StartFrame + int(timeSeconds*c.SheetFPS)
	frameIdx = ((frameIdx % totalFrames) + totalFrames) % totalFrames
	col := frameIdx % cols
	row := frameIdx / cols

	out := NewFrameBuffer(c.FrameW, c.FrameH)
	ox, oy := col*c.FrameW, row*c.FrameH
	for y := 0; y < c.FrameH; y++ {
		for x := 0; x < c.FrameW; x++ {
			out.Set(x, y, sheet.At(ox+x, oy+y))
		}
	}
	return out, nil
}

// --- Video ---

func (r *Renderer) renderVideoFrame(c Content, timeSeconds float64) (*FrameBuffer, error) {
	asset, ok := r.Assets.Lookup(c.AssetID)
	if !ok {
		log.Printf("vidra: video asset %q not found, using fallback color", c.AssetID)
		return SolidFrameBuffer(64, 64, ColorNeutralGrey), nil
	}
	t := timeSeconds + float64(c.TrimStart)
	fb, err := r.Video.FrameAt(asset.Path, t)
	if err != nil {
		log.Printf("vidra: decoding video %q at %.3fs: %v, using fallback color", asset.Path, t, err)
		return SolidFrameBuffer(64, 64, ColorNeutralGrey), nil
	}
	return fb, nil
}

// renderWeb captures c.WebSource through r.Web. A Web layer
// with no backend attached is a hard error rather than a placeholder,
// since silently substituting a blank frame would make a batch render
// appear to succeed while dropping real content.
func (r *Renderer) renderWeb(c Content, timeSeconds float64) (*FrameBuffer, error) {
	if r.Web == nil {
		return nil, renderErrorf("content.web", fmt.Errorf("web content requires a webcapture.Backend (see Renderer.WithWebBackend)"))
	}
	req := webcapture.CaptureRequest{
		Source:    c.WebSource,
		ViewportW: c.ViewportW,
		ViewportH: c.ViewportH,
		WaitFor:   c.WaitFor,
		Variables: c.WebVariables,
		FrameAt:   time.Duration(timeSeconds * float64(time.Second)),
		Accurate:  c.WebMode == WebFrameAccurate,
	}
	frame, err := r.Web.Capture(context.Background(), req)
	if err != nil {
		return nil, renderErrorf("content.web", err)
	}
	fb := NewFrameBuffer(frame.Width, frame.Height)
	copy(fb.Pix, frame.Pix)
	return fb, nil
}

// --- Text ---

// fontCache caches parsed opentype fonts by asset id.
type fontCache struct {
	items map[AssetId]*opentype.Font
}

func newFontCache() *fontCache { return &fontCache{items: make(map[AssetId]*opentype.Font)} }

func (r *Renderer) renderText(c Content, maxW, maxH int) (*FrameBuffer, error) {
	face, closeFace, err := r.resolveFace(c)
	if err != nil {
		return nil, renderErrorf("content.text.face", err)
	}
	defer closeFace()

	lines := wrapText(c.Text, face, maxW)
	lineHeight := face.Metrics().Height.Ceil()
	if lineHeight <= 0 {
		lineHeight = int(c.FontSize * 1.2)
	}
	height := lineHeight * maxInt(len(lines), 1)
	if maxH > 0 {
		height = maxH
	}
	width := maxW
	if width <= 0 {
		width = 1
		for _, l := range lines {
			if w := measureWidth(face, l); w > width {
				width = w
			}
		}
	}

	img := newRGBAImage(width, height)
	drawer := &font.Drawer{
		Dst:  img,
		Src:  solidUniform(c.Color),
		Face: face,
	}
	baseline := face.Metrics().Ascent.Ceil()
	for i, line := range lines {
		drawer.Dot = fixed.P(0, baseline+i*lineHeight)
		drawer.DrawString(line)
	}
	return rgbaToFrameBuffer(img), nil
}

// resolveFace loads and caches the font asset referenced by c.FontFamily
// (interpreted as an AssetId), returning a font.Face at c.FontSize.
func (r *Renderer) resolveFace(c Content) (font.Face, func(), error) {
	assetID := AssetId(c.FontFamily)
	asset, ok := r.Assets.Lookup(assetID)
	if !ok {
		return nil, nil, fmt.Errorf("font asset %q not found", c.FontFamily)
	}
	otf, ok := r.Fonts.items[assetID]
	if !ok {
		data, err := readFile(asset.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading font %q: %w", asset.Path, err)
		}
		otf, err = opentype.Parse(data)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing font %q: %w", asset.Path, err)
		}
		r.Fonts.items[assetID] = otf
	}
	size := c.FontSize
	if size <= 0 {
		size = 16
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating face at size %v: %w", size, err)
	}
	return face, func() { face.Close() }, nil
}

// wrapText breaks text into lines no wider than maxW (0 = unbounded),
// breaking only on grapheme-cluster boundaries (github.com/rivo/uniseg) so
// multi-rune clusters (emoji, combining marks) are never split mid-cluster.
func wrapText(text string, face font.Face, maxW int) []string {
	if maxW <= 0 {
		return splitHardLines(text)
	}
	var lines []string
	for _, paragraph := range splitHardLines(text) {
		var current string
		gr := uniseg.NewGraphemes(paragraph)
		var word string
		flushWord := func() {
			if word == "" {
				return
			}
			candidate := current
			if candidate != "" {
				candidate += " "
			}
			candidate += word
			if current != "" && measureWidth(face, candidate) > maxW {
				lines = append(lines, current)
				current = word
			} else {
				current = candidate
			}
			word = ""
		}
		for gr.Next() {
			cluster := gr.Str()
			if cluster == " " {
				flushWord()
				continue
			}
			word += cluster
		}
		flushWord()
		if current != "" {
			lines = append(lines, current)
		}
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

func splitHardLines(text string) []string {
	var lines []string
	start := 0
	for i, r := range text {
		if r == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	lines = append(lines, text[start:])
	return lines
}

func measureWidth(face font.Face, s string) int {
	adv := font.MeasureString(face, s)
	return adv.Ceil()
}
