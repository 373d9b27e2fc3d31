package vidra

import (
	"bytes"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
)

// VideoDecoder extracts individual frames from a video file by shelling out
// to an FFmpeg-compatible CLI located on PATH. Subprocess control keeps
// decoding behavior tied to whatever FFmpeg build is installed rather than
// a cgo binding baked into the binary.
type VideoDecoder struct {
	ffmpegPath string
	cache      *videoFrameCache
}

// NewVideoDecoder resolves the ffmpeg binary from PATH once at construction.
func NewVideoDecoder() *VideoDecoder {
	path, _ := exec.LookPath("ffmpeg")
	return &VideoDecoder{ffmpegPath: path, cache: newVideoFrameCache()}
}

// FrameAt returns the decoded frame at timeSeconds, millisecond-precision
// cached by (path, ms). Races between concurrent callers
// requesting the same key may decode twice; the cache is last-write-wins by
// design.
func (d *VideoDecoder) FrameAt(path string, timeSeconds float64) (*FrameBuffer, error) {
	if d.ffmpegPath == "" {
		return nil, fmt.Errorf("video: ffmpeg not found on PATH")
	}
	ms := int64(timeSeconds * 1000)
	key := videoFrameKey{path: path, ms: ms}
	if fb, ok := d.cache.get(key); ok {
		return fb, nil
	}

	img, err := d.decodeFrame(path, timeSeconds)
	if err != nil {
		return nil, err
	}
	fb := imageToFrameBuffer(img)
	d.cache.put(key, fb)
	return fb, nil
}

// decodeFrame shells out to `ffmpeg -ss <t> -i <path> -frames:v 1 -f image2pipe -vcodec png -`
// and decodes the single PNG frame it writes to stdout.
func (d *VideoDecoder) decodeFrame(path string, timeSeconds float64) (image.Image, error) {
	cmd := exec.Command(d.ffmpegPath,
		"-ss", strconv.FormatFloat(timeSeconds, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-loglevel", "error",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("video: ffmpeg decode of %s at %.3fs: %w: %s", path, timeSeconds, err, stderr.String())
	}
	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("video: decoding ffmpeg output for %s: %w", path, err)
	}
	return img, nil
}

// Probe runs ffprobe against path and returns its duration in seconds.
// Returns an error if ffprobe is unavailable or the file cannot be probed.
func Probe(path string) (Duration, error) {
	ffprobe, err := exec.LookPath("ffprobe")
	if err != nil {
		return 0, fmt.Errorf("video: ffprobe not found on PATH: %w", err)
	}
	cmd := exec.Command(ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("video: ffprobe on %s: %w: %s", path, err, stderr.String())
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("video: parsing ffprobe duration for %s: %w", path, err)
	}
	return Seconds(seconds), nil
}
