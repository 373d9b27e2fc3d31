package vidra

import (
	"fmt"
	"sync"
)

// AssetId is an opaque identifier for a registered Asset.
type AssetId string

// AssetType identifies the kind of file an Asset refers to.
type AssetType uint8

const (
	AssetFont AssetType = iota
	AssetImage
	AssetVideo
	AssetAudio
	AssetLut
	AssetShader
)

// Asset is a registered, read-only-at-render-time reference to a file on disk.
type Asset struct {
	ID   AssetId
	Type AssetType
	Path string
}

// AssetRegistry maps AssetId to Asset. Registration is idempotent: a second
// Register call with the same id is a no-op. Safe for
// concurrent use; AI materialization may register new assets between
// render batches while the pipeline only ever reads during a batch.
type AssetRegistry struct {
	mu     sync.RWMutex
	assets map[AssetId]Asset
}

// NewAssetRegistry returns an empty registry.
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{assets: make(map[AssetId]Asset)}
}

// Register adds asset if its id is not already present. Idempotent.
func (r *AssetRegistry) Register(a Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assets[a.ID]; exists {
		return
	}
	r.assets[a.ID] = a
}

// Lookup returns the asset for id and whether it was found.
func (r *AssetRegistry) Lookup(id AssetId) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	return a, ok
}

// All returns a snapshot slice of every registered asset.
func (r *AssetRegistry) All() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a)
	}
	return out
}

// Settings are the project-level rendering parameters.
type Settings struct {
	Width, Height int
	FPS           float64
	Background    Color
}

// Project is the IR root: settings, an asset registry, and an ordered list
// of scenes.
type Project struct {
	Settings Settings
	Assets   *AssetRegistry
	Scenes   []*Scene
}

// NewProject creates an empty project with its own asset registry.
func NewProject(settings Settings) *Project {
	return &Project{Settings: settings, Assets: NewAssetRegistry()}
}

// AddScene appends and returns a new scene of the given duration.
func (p *Project) AddScene(id string, duration Duration) *Scene {
	s := &Scene{ID: id, Duration: duration}
	p.Scenes = append(p.Scenes, s)
	return s
}

// TotalFrames returns the total number of global frames across all scenes,
// accounting for transition overlaps.
func (p *Project) TotalFrames() int64 {
	var cursor int64
	for i, s := range p.Scenes {
		sf := s.Duration.Frames(p.Settings.FPS)
		overlap := int64(0)
		if i > 0 && s.Transition != nil {
			prevFrames := p.Scenes[i-1].Duration.Frames(p.Settings.FPS)
			maxOverlap := prevFrames
			if sf < maxOverlap {
				maxOverlap = sf
			}
			overlap = s.Transition.Duration.Frames(p.Settings.FPS)
			if overlap > maxOverlap {
				overlap = maxOverlap
			}
		}
		cursor += sf - overlap
	}
	return cursor
}

// TransitionKind enumerates the supported scene-transition variants.
type TransitionKind uint8

const (
	TransitionCrossfade TransitionKind = iota
	TransitionWipe
	TransitionPush
	TransitionSlide
)

// Direction is used by directional transitions (Wipe/Push/Slide).
type Direction uint8

const (
	DirLeft Direction = iota
	DirRight
	DirUp
	DirDown
)

// Transition describes how a scene enters over the previous one.
type Transition struct {
	Kind      TransitionKind
	Direction Direction
	Duration  Duration
	Easing    EasingKind
}

// Scene is an ordered group of layers lasting Duration, optionally entering
// via a Transition.
type Scene struct {
	ID         string
	Duration   Duration
	Layers     []*Layer
	Transition *Transition
}

// AddLayer appends a layer to the scene (helper; layers may also be
// constructed and appended directly).
func (s *Scene) AddLayer(l *Layer) *Layer {
	s.Layers = append(s.Layers, l)
	return l
}

// FrameCount returns this scene's duration in whole frames at fps.
func (s *Scene) FrameCount(fps float64) int64 { return s.Duration.Frames(fps) }

// ContentKind is the closed tag for Layer.Content's variant.
type ContentKind uint8

const (
	ContentEmpty ContentKind = iota
	ContentSolid
	ContentText
	ContentImage
	ContentSpritesheet
	ContentVideo
	ContentAudio
	ContentWaveform
	ContentTTS
	ContentAutoCaption
	ContentShape
	ContentShader
	ContentWeb
)

// ShapeKind enumerates the primitive shapes for ContentShape.
type ShapeKind uint8

const (
	ShapeRect ShapeKind = iota
	ShapeCircle
	ShapeEllipse
)

// WebCaptureMode selects how a Web layer is captured.
type WebCaptureMode uint8

const (
	WebFrameAccurate WebCaptureMode = iota
	WebRealtime
)

// AudioRole annotates an Audio layer's role for ducking decisions made by
// external tooling; the core compositor never mixes audio.
type AudioRole uint8

const (
	AudioRoleNone AudioRole = iota
	AudioRoleNarration
	AudioRoleMusic
	AudioRoleSFX
)

// Content is the tagged union of everything a Layer can render.
// Only the fields relevant to Kind are meaningful; this is a single
// wide-struct-plus-kind-tag shape, keyed by a ContentKind enum.
type Content struct {
	Kind ContentKind

	// Solid
	Color Color

	// Text / AutoCaption shared fields
	Text       string
	FontFamily string
	FontSize   float64

	// Image / Spritesheet / Video / Audio / Shader
	AssetID AssetId

	// Spritesheet
	FrameW, FrameH int
	SheetFPS       float64
	StartFrame     int
	FrameCount     *int // nil = until the sheet runs out

	// Video / Audio trims
	TrimStart Duration
	TrimEnd   *Duration

	// Audio
	Volume float64
	Role   AudioRole
	Duck   bool

	// Waveform
	WaveW, WaveH int

	// TTS
	Voice         string
	AudioAssetID  AssetId
	hasAudioAsset bool

	// Shape
	Shape       ShapeKind
	Fill        *Color
	Stroke      *Color
	StrokeWidth float64

	// Web
	WebSource     string
	ViewportW     int
	ViewportH     int
	WebMode       WebCaptureMode
	WaitFor       string
	WebVariables  map[string]string
}

// Solid returns an Empty-sized full-canvas solid color content.
func Solid(c Color) Content { return Content{Kind: ContentSolid, Color: c} }

// TextContent returns a Text content variant.
func TextContent(text, fontFamily string, size float64, color Color) Content {
	return Content{Kind: ContentText, Text: text, FontFamily: fontFamily, FontSize: size, Color: color}
}

// ImageContent returns an Image content variant.
func ImageContent(asset AssetId) Content { return Content{Kind: ContentImage, AssetID: asset} }

// VideoContent returns a Video content variant.
func VideoContent(asset AssetId, trimStart Duration, trimEnd *Duration) Content {
	return Content{Kind: ContentVideo, AssetID: asset, TrimStart: trimStart, TrimEnd: trimEnd}
}

// HasAudioAsset reports whether a TTS content's pre-materialized audio asset is set.
func (c Content) HasAudioAsset() bool { return c.hasAudioAsset }

// WithAudioAsset returns a copy of c with its TTS audio asset set.
func (c Content) WithAudioAsset(id AssetId) Content {
	c.AudioAssetID = id
	c.hasAudioAsset = true
	return c
}

// EffectKind is the closed tag for an effect pipeline entry.
type EffectKind uint8

const (
	EffectBlur EffectKind = iota
	EffectGrayscale
	EffectInvert
	EffectBrightness
	EffectContrast
	EffectSaturation
	EffectHueRotate
	EffectVignette
	EffectLut
	EffectCustomShader
	EffectRemoveBackground
)

// Effect is one entry in a layer's ordered effect pipeline.
type Effect struct {
	Kind EffectKind

	// Blur/Grayscale/Invert/Brightness/Contrast/Saturation/Vignette
	Amount float64
	// Blur radius in pixels, HueRotate degrees
	Radius float64

	// Lut
	LutPath      string
	LutIntensity float64

	// CustomShader
	WGSLSource string
}

// ConstraintKind is the closed tag for a layout constraint.
type ConstraintKind uint8

const (
	ConstraintCenter ConstraintKind = iota
	ConstraintPin
	ConstraintBelow
	ConstraintAbove
	ConstraintLeftOf
	ConstraintRightOf
	ConstraintFill
)

// Axis selects which axis/axes a constraint applies to.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisBoth
)

// Edge selects a viewport edge for Pin constraints.
type Edge uint8

const (
	EdgeLeft Edge = iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

// LayoutConstraint is one layout rule resolved by the layout solver.
type LayoutConstraint struct {
	Kind        ConstraintKind
	Axis        Axis
	Margin      float64 // Pin
	Edge        Edge    // Pin
	Spacing     float64 // Below/Above/LeftOf/RightOf
	AnchorLayer string  // Below/Above/LeftOf/RightOf: id of referenced layer
	Padding     float64 // Fill
}

// EventKind identifies an interactive event. The render core
// never consumes events; they are carried for interactive runtimes only.
type EventKind uint8

const (
	EventClick EventKind = iota
)

// Action is a SetVar mutation triggered by an event, for interactive runtimes.
type Action struct {
	VarName string
	Expr    string
}

// LayerEvent binds a list of actions to an event kind.
type LayerEvent struct {
	Event   EventKind
	Actions []Action
}

// Layer is one visual element in a scene, with its content, transform,
// effects, optional mask, layout constraints, animations, and children.
type Layer struct {
	ID          string
	Content     Content
	Transform   Transform2D
	Opacity     float64
	Visible     bool
	Effects     []Effect
	Mask        string // id of the sibling layer used as a mask, or "" for none
	Constraints []LayoutConstraint
	Animations  []*Animation
	Events      []LayerEvent
	Children    []*Layer
}

// NewLayer returns a Layer with sane defaults (visible, opaque).
func NewLayer(id string, content Content) *Layer {
	return &Layer{
		ID:        id,
		Content:   content,
		Transform: Transform2D{Scale: Point2D{X: 1, Y: 1}, Opacity: 1},
		Opacity:   1,
		Visible:   true,
	}
}

// Transform2D is a layer's full 2.5D per-frame transform.
type Transform2D struct {
	Position    Point2D
	Anchor      Point2D // in [0,1]^2
	Scale       Point2D
	Rotation    float64 // degrees, about Z
	Opacity     float64 // [0,1]
	TranslateZ  float64
	RotateX     float64 // degrees
	RotateY     float64 // degrees
	Perspective float64
}

// Is25D reports whether this transform requires projective compositing:
// any of rotation, translate_z, rotate_x, rotate_y, or perspective is
// non-zero.
func (t Transform2D) Is25D() bool {
	return t.Rotation != 0 || t.TranslateZ != 0 || t.RotateX != 0 || t.RotateY != 0 || t.Perspective != 0
}

// Validate checks a Project's structural invariants: fps>0,
// dimensions>0, every referenced AssetId
// resolves, no dangling masks, no constraint/mask cycles, and transition
// duration <= min(this.duration, previous.duration). All failures are
// collected and returned together, never just the first one.
func (p *Project) Validate() error {
	var errs ValidationError

	if p.Settings.FPS <= 0 {
		errs = append(errs, fmt.Errorf("project: fps must be > 0, got %v", p.Settings.FPS))
	}
	if p.Settings.Width <= 0 || p.Settings.Height <= 0 {
		errs = append(errs, fmt.Errorf("project: dimensions must be > 0, got %dx%d", p.Settings.Width, p.Settings.Height))
	}

	seenLayerIDs := map[string]bool{}
	for si, s := range p.Scenes {
		if s.Transition != nil && si > 0 {
			maxDur := s.Duration
			prevDur := p.Scenes[si-1].Duration
			if prevDur < maxDur {
				maxDur = prevDur
			}
			if s.Transition.Duration > maxDur {
				errs = append(errs, fmt.Errorf("scene %q: transition duration %v exceeds min(this, previous) duration %v", s.ID, s.Transition.Duration, maxDur))
			}
		}
		for _, l := range s.Layers {
			validateLayerTree(p, l, seenLayerIDs, &errs)
		}
		if cyc := findConstraintCycle(s.Layers); cyc != "" {
			errs = append(errs, fmt.Errorf("scene %q: constraint/mask cycle involving layer %q", s.ID, cyc))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateLayerTree(p *Project, l *Layer, seen map[string]bool, errs *ValidationError) {
	if seen[l.ID] {
		*errs = append(*errs, fmt.Errorf("duplicate layer id %q", l.ID))
	}
	seen[l.ID] = true

	switch l.Content.Kind {
	case ContentImage, ContentVideo, ContentAudio, ContentShader, ContentSpritesheet:
		if _, ok := p.Assets.Lookup(l.Content.AssetID); !ok {
			*errs = append(*errs, fmt.Errorf("layer %q: dangling asset reference %q", l.ID, l.Content.AssetID))
		}
	}
	for _, e := range l.Effects {
		if e.Kind == EffectLut && e.LutPath == "" {
			*errs = append(*errs, fmt.Errorf("layer %q: lut effect has empty path", l.ID))
		}
	}
	for _, child := range l.Children {
		validateLayerTree(p, child, seen, errs)
	}
}

// findConstraintCycle returns the id of a layer participating in a
// mask/constraint reference cycle, or "" if none exists.
func findConstraintCycle(layers []*Layer) string {
	byID := map[string]*Layer{}
	var flatten func(l *Layer)
	flatten = func(l *Layer) {
		byID[l.ID] = l
		for _, c := range l.Children {
			flatten(c)
		}
	}
	for _, l := range layers {
		flatten(l)
	}

	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := map[string]int{}
	var refsOf func(l *Layer) []string
	refsOf = func(l *Layer) []string {
		var refs []string
		if l.Mask != "" {
			refs = append(refs, l.Mask)
		}
		for _, c := range l.Constraints {
			if c.AnchorLayer != "" {
				refs = append(refs, c.AnchorLayer)
			}
		}
		return refs
	}

	var cycleAt string
	var visit func(id string) bool
	visit = func(id string) bool {
		if color[id] == black {
			return false
		}
		if color[id] == grey {
			cycleAt = id
			return true
		}
		color[id] = grey
		l, ok := byID[id]
		if ok {
			for _, ref := range refsOf(l) {
				if visit(ref) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for id := range byID {
		if color[id] == white {
			if visit(id) {
				return cycleAt
			}
		}
	}
	return ""
}
