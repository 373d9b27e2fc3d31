// Package vidra is a programmable video rendering engine: a declarative
// scene description (projects, scenes, layers, animations, effects, assets)
// is compiled to a content-addressed intermediate representation and
// executed by a deterministic frame compositor that emits a sequence of
// RGBA frame buffers.
//
// # Quick start
//
//	proj := vidra.NewProject(vidra.Settings{Width: 320, Height: 240, FPS: 30, Background: vidra.ColorBlack})
//	scene := proj.AddScene("intro", vidra.Seconds(1))
//	scene.AddLayer(vidra.NewLayer("bg", vidra.Solid(vidra.Color{R: 1, A: 1})))
//
//	pipeline := vidra.NewPipeline(nil)
//	result, err := pipeline.Render(proj)
//
// # Core + IR + render pipeline
//
// The engine is organized the way a retained-mode scene graph engine is
// organized, but the tree is immutable IR rather than a live, mutable node
// tree: [Project] owns an [AssetRegistry] and an ordered list of [Scene]s;
// each [Scene] owns a list of [Layer]s; each [Layer] carries a content
// variant, a [Transform2D], an effect pipeline, optional mask and layout
// constraints, and a list of [Animation]s. [Pipeline.Render] walks this tree
// once per frame, in parallel across frames, and returns the sequence of
// [FrameBuffer]s plus its content hash.
//
// Collaborative editing of the IR (outside the render path) is modeled by
// the sibling [crdt] package; the effect DSL compiler lives in [effectdsl].
package vidra
