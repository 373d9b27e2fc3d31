package webcapture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodBackend captures web pages with a real headless Chromium instance via
// go-rod, the only browser-automation dependency anywhere in the corpus.
// One browser process is shared across calls; pages are opened and closed
// per capture so concurrent RenderFrameIndex workers don't contend on a
// single tab.
type RodBackend struct {
	mu      sync.Mutex
	browser *rod.Browser
}

// NewRodBackend launches a headless Chromium (downloading one via
// go-rod's launcher if none is found locally) and connects to it.
func NewRodBackend() (*RodBackend, error) {
	url, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return nil, fmt.Errorf("webcapture: launching browser: %w", err)
	}
	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("webcapture: connecting to browser: %w", err)
	}
	return &RodBackend{browser: browser}, nil
}

// Capture loads req.Source at the requested viewport, optionally waits for
// a CSS selector to appear, injects req.Variables as window properties, and
// returns a PNG screenshot decoded into a Frame.
func (b *RodBackend) Capture(ctx context.Context, req CaptureRequest) (*Frame, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: req.Source})
	if err != nil {
		return nil, fmt.Errorf("webcapture: opening %s: %w", req.Source, err)
	}
	defer page.Close()

	w, h := req.ViewportW, req.ViewportH
	if w <= 0 {
		w = 1280
	}
	if h <= 0 {
		h = 720
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: w, Height: h, DeviceScaleFactor: 1}); err != nil {
		return nil, fmt.Errorf("webcapture: setting viewport: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("webcapture: waiting for %s to load: %w", req.Source, err)
	}

	for key, value := range req.Variables {
		expr := fmt.Sprintf("window[%q] = %q", key, value)
		if _, err := page.Eval(expr); err != nil {
			return nil, fmt.Errorf("webcapture: injecting variable %s: %w", key, err)
		}
	}

	if req.WaitFor != "" {
		el, err := page.Element(req.WaitFor)
		if err != nil {
			return nil, fmt.Errorf("webcapture: waiting for selector %q: %w", req.WaitFor, err)
		}
		if err := el.WaitVisible(); err != nil {
			return nil, fmt.Errorf("webcapture: selector %q never became visible: %w", req.WaitFor, err)
		}
	}

	shot, err := page.Screenshot(true, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
	if err != nil {
		return nil, fmt.Errorf("webcapture: screenshot of %s: %w", req.Source, err)
	}
	return decodePNGFrame(shot)
}

// Close shuts down the shared browser process.
func (b *RodBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.browser.Close()
}

func decodePNGFrame(data []byte) (*Frame, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("webcapture: decoding screenshot: %w", err)
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &Frame{Width: bounds.Dx(), Height: bounds.Dy(), Pix: rgba.Pix}, nil
}
