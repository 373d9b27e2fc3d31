// Command vidra-render renders a small demo project to a sequence of PNG
// frames, exercising the full pipeline end to end: IR construction,
// layout, animation, compositing, hashing, and a signed receipt.
package main

import (
	"crypto/ed25519"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	vidra "github.com/Sansa-Organisation/vidra-sub000"
)

func main() {
	outDir := flag.String("out", "out", "directory to write PNG frames into")
	workers := flag.Int("workers", 0, "worker pool size (0 = runtime.NumCPU())")
	vltID := flag.String("vlt-id", "demo", "vault id stamped into the render receipt")
	flag.Parse()

	if err := run(*outDir, *workers, *vltID); err != nil {
		log.Fatalf("vidra-render: %v", err)
	}
}

func run(outDir string, workers int, vltID string) error {
	proj := demoProject()
	if err := proj.Validate(); err != nil {
		return fmt.Errorf("validating project: %w", err)
	}

	var workerPtr *int
	if workers > 0 {
		workerPtr = &workers
	}
	pipeline := vidra.NewPipeline(workerPtr)

	start := time.Now()
	result, err := pipeline.Render(proj)
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	elapsed := time.Since(start)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", outDir, err)
	}
	for i, frame := range result.Frames {
		path := filepath.Join(outDir, fmt.Sprintf("frame-%05d.png", i))
		if err := vidra.EncodeImageFile(path, frame); err != nil {
			return fmt.Errorf("writing frame %d: %w", i, err)
		}
	}

	receipt := buildReceipt(vltID, result.OutputHash, elapsed)
	fmt.Printf("rendered %d frames to %s in %s\n", len(result.Frames), outDir, elapsed)
	fmt.Printf("output hash: %s\n", result.OutputHash)
	if err := vidra.WriteReceipt(receipt); err != nil {
		return fmt.Errorf("writing receipt: %w", err)
	}
	return nil
}

// buildReceipt signs with an ephemeral keypair: a real deployment loads a
// persistent signing key instead of generating one per invocation.
func buildReceipt(vltID, outputHash string, elapsed time.Duration) vidra.Receipt {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		log.Fatalf("vidra-render: generating signing key: %v", err)
	}
	r := vidra.Receipt{
		VltID:            vltID,
		OutputHash:       outputHash,
		Hardware:         "cpu",
		RenderDurationMs: elapsed.Milliseconds(),
		Timestamp:        time.Now().Unix(),
	}
	return r.Sign(priv)
}

// demoProject builds a two-scene project: a solid red scene with a
// pulsing white overlay, crossfading into a solid blue scene.
func demoProject() *vidra.Project {
	proj := vidra.NewProject(vidra.Settings{
		Width:      640,
		Height:     360,
		FPS:        30,
		Background: vidra.ColorTransparent,
	})

	intro := proj.AddScene("intro", vidra.Seconds(2))
	intro.AddLayer(vidra.NewLayer("bg", vidra.Solid(vidra.Color{R: 0.8, G: 0.1, B: 0.1, A: 1})))

	pulse := vidra.NewLayer("pulse", vidra.Solid(vidra.Color{R: 1, G: 1, B: 1, A: 1}))
	pulse.Animations = append(pulse.Animations, &vidra.Animation{
		Property: vidra.PropOpacity,
		Keyframes: []vidra.Keyframe{
			{Time: vidra.Seconds(0), Value: 0},
			{Time: vidra.Seconds(1), Value: 0.4},
			{Time: vidra.Seconds(2), Value: 0},
		},
	})
	intro.AddLayer(pulse)

	outro := proj.AddScene("outro", vidra.Seconds(2))
	outro.Transition = &vidra.Transition{
		Kind:     vidra.TransitionCrossfade,
		Duration: vidra.Seconds(0.5),
		Easing:   vidra.EaseLinear,
	}
	outro.AddLayer(vidra.NewLayer("bg", vidra.Solid(vidra.Color{R: 0.1, G: 0.1, B: 0.8, A: 1})))

	return proj
}
