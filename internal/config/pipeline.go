// Package config loads augmentation pipeline definitions from TOML files
// and builds runnable pipelines from them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tessellate-ml/augment/internal/augment"
	"github.com/tessellate-ml/augment/internal/augment/container"
	"github.com/tessellate-ml/augment/internal/geometry"
)

// Spec is the root of a pipeline definition file: one [pipeline] block
// describing the container and any number of [[transform]] blocks run in
// file order.
type Spec struct {
	Pipeline   PipelineSpec    `toml:"pipeline"`
	Transforms []TransformSpec `toml:"transform"`
}

// PipelineSpec configures the container the transforms run in. Every
// field is optional; the zero value is a single-image pipeline with an
// unseeded sampler.
type PipelineSpec struct {
	Name        string   `toml:"name"`
	Keys        []string `toml:"keys"`
	Seed        *int64   `toml:"seed"`
	Video       *bool    `toml:"video"`
	PatchGrid   []int    `toml:"patch_grid"` // [rows, cols]
	RandomApply *int     `toml:"random_apply"`
	RandomOrder *bool    `toml:"random_order"`
}

// TransformSpec is one [[transform]] block. Type selects the transform;
// the remaining fields are optional and only valid where the type reads
// them, so a misspelled or misplaced field fails loudly instead of
// silently keeping a default.
type TransformSpec struct {
	Type        string   `toml:"type"`
	P           *float64 `toml:"p"`
	SameOnBatch *bool    `toml:"same_on_batch"`
	Interp      *string  `toml:"interp"` // "nearest" or "bilinear"

	// color_jitter
	Brightness *float64 `toml:"brightness"`
	Contrast   *float64 `toml:"contrast"`
	Saturation *float64 `toml:"saturation"`

	// rotation and affine
	Degrees   *float64  `toml:"degrees"`
	Translate []float64 `toml:"translate"` // [x, y] max fractions
	Scale     []float64 `toml:"scale"`     // [lo, hi]; affine scale or erasing area

	// gaussian_noise
	Mean *float64 `toml:"mean"`
	Std  *float64 `toml:"std"`

	// erasing
	Ratio []float64 `toml:"ratio"` // [lo, hi] box aspect ratio
	Value *float64  `toml:"value"`

	// mixup
	Lambda []float64 `toml:"lambda"` // [lo, hi] mixing weight
}

// validTransformTypes lists the accepted type names in documentation order.
var validTransformTypes = []string{
	"color_jitter",
	"horizontal_flip",
	"vertical_flip",
	"rotation",
	"affine",
	"gaussian_noise",
	"erasing",
	"mixup",
}

// transformFields lists the fields each type reads, beyond "type" itself.
var transformFields = map[string][]string{
	"color_jitter":    {"p", "same_on_batch", "brightness", "contrast", "saturation"},
	"horizontal_flip": {"p", "same_on_batch", "interp"},
	"vertical_flip":   {"p", "same_on_batch", "interp"},
	"rotation":        {"p", "same_on_batch", "interp", "degrees"},
	"affine":          {"p", "same_on_batch", "interp", "degrees", "translate", "scale"},
	"gaussian_noise":  {"p", "same_on_batch", "mean", "std"},
	"erasing":         {"p", "same_on_batch", "scale", "ratio", "value"},
	"mixup":           {"p", "same_on_batch", "lambda"},
}

// ValidTransformTypes returns the accepted [[transform]] type names.
func ValidTransformTypes() []string {
	return slices.Clone(validTransformTypes)
}

// Load reads a pipeline definition from a TOML file.
// The file is validated to ensure it has a .toml extension and is under
// the max file size. Keys the schema does not know are rejected, so a
// typo never silently drops a setting.
func Load(path string) (*Spec, error) {
	// Validate the pipeline file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".toml" {
		return nil, fmt.Errorf("pipeline file must have .toml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat pipeline file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("pipeline file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}

	var spec Spec
	md, err := toml.Decode(string(data), &spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		names := make([]string, len(undecoded))
		for i, k := range undecoded {
			names[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in pipeline file: %s", strings.Join(names, ", "))
	}

	// Validate the definition
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline definition: %w", err)
	}

	return &spec, nil
}

// Validate checks that the definition can be built.
func (s *Spec) Validate() error {
	if len(s.Transforms) == 0 {
		return fmt.Errorf("pipeline needs at least one [[transform]] block")
	}

	if s.Pipeline.Seed != nil && *s.Pipeline.Seed < 0 {
		return fmt.Errorf("seed must be non-negative, got %d", *s.Pipeline.Seed)
	}
	if _, err := s.Pipeline.ParsedKeys(); err != nil {
		return err
	}

	if grid := s.Pipeline.PatchGrid; len(grid) != 0 {
		if len(grid) != 2 {
			return fmt.Errorf("patch_grid must be [rows, cols], got %d values", len(grid))
		}
		if grid[0] < 1 || grid[1] < 1 {
			return fmt.Errorf("patch_grid %dx%d invalid", grid[0], grid[1])
		}
		if s.Pipeline.GetVideo() {
			return fmt.Errorf("video and patch_grid cannot be combined")
		}
	}

	if ra := s.Pipeline.GetRandomApply(); ra < 0 || ra > len(s.Transforms) {
		return fmt.Errorf("random_apply %d out of range for %d transforms", ra, len(s.Transforms))
	}
	shuffled := s.Pipeline.GetRandomApply() > 0 || s.Pipeline.GetRandomOrder()
	if shuffled && (s.Pipeline.GetVideo() || len(s.Pipeline.PatchGrid) != 0) {
		return fmt.Errorf("random_apply and random_order only apply to a plain transform sequence")
	}

	for i := range s.Transforms {
		if err := s.Transforms[i].validate(); err != nil {
			return fmt.Errorf("transform %d: %w", i, err)
		}
	}
	return nil
}

func (ts *TransformSpec) validate() error {
	allowed, ok := transformFields[ts.Type]
	if !ok {
		return fmt.Errorf("unknown transform type %q (valid types: %s)",
			ts.Type, strings.Join(validTransformTypes, ", "))
	}
	for _, f := range ts.setFields() {
		if !slices.Contains(allowed, f) {
			return fmt.Errorf("%s does not use field %q (fields: %s)",
				ts.Type, f, strings.Join(allowed, ", "))
		}
	}

	if ts.P != nil && (*ts.P < 0 || *ts.P > 1) {
		return fmt.Errorf("p must be between 0 and 1, got %v", *ts.P)
	}
	if ts.Degrees != nil && *ts.Degrees < 0 {
		return fmt.Errorf("degrees must be non-negative, got %v", *ts.Degrees)
	}
	if ts.Std != nil && *ts.Std < 0 {
		return fmt.Errorf("std must be non-negative, got %v", *ts.Std)
	}
	if ts.Interp != nil {
		if _, err := parseInterp(*ts.Interp); err != nil {
			return err
		}
	}
	if err := checkPair("translate", ts.Translate, false); err != nil {
		return err
	}
	if err := checkPair("scale", ts.Scale, true); err != nil {
		return err
	}
	if err := checkPair("ratio", ts.Ratio, true); err != nil {
		return err
	}
	if err := checkPair("lambda", ts.Lambda, true); err != nil {
		return err
	}
	return nil
}

// setFields returns the names of the optional fields present in the block.
func (ts *TransformSpec) setFields() []string {
	var fields []string
	if ts.P != nil {
		fields = append(fields, "p")
	}
	if ts.SameOnBatch != nil {
		fields = append(fields, "same_on_batch")
	}
	if ts.Interp != nil {
		fields = append(fields, "interp")
	}
	if ts.Brightness != nil {
		fields = append(fields, "brightness")
	}
	if ts.Contrast != nil {
		fields = append(fields, "contrast")
	}
	if ts.Saturation != nil {
		fields = append(fields, "saturation")
	}
	if ts.Degrees != nil {
		fields = append(fields, "degrees")
	}
	if len(ts.Translate) != 0 {
		fields = append(fields, "translate")
	}
	if len(ts.Scale) != 0 {
		fields = append(fields, "scale")
	}
	if ts.Mean != nil {
		fields = append(fields, "mean")
	}
	if ts.Std != nil {
		fields = append(fields, "std")
	}
	if len(ts.Ratio) != 0 {
		fields = append(fields, "ratio")
	}
	if ts.Value != nil {
		fields = append(fields, "value")
	}
	if len(ts.Lambda) != 0 {
		fields = append(fields, "lambda")
	}
	return fields
}

// checkPair validates a two-element float list. Ordered pairs are ranges
// and must satisfy lo <= hi; unordered pairs are per-axis values.
func checkPair(name string, v []float64, ordered bool) error {
	if len(v) == 0 {
		return nil
	}
	if len(v) != 2 {
		return fmt.Errorf("%s must have exactly 2 values, got %d", name, len(v))
	}
	if ordered && v[0] > v[1] {
		return fmt.Errorf("%s range [%v, %v] is inverted", name, v[0], v[1])
	}
	return nil
}

func parseInterp(s string) (geometry.Interp, error) {
	switch s {
	case "nearest":
		return geometry.InterpNearest, nil
	case "bilinear":
		return geometry.InterpBilinear, nil
	}
	return 0, fmt.Errorf("unknown interp %q (valid: nearest, bilinear)", s)
}

// ParsedKeys maps the configured key names to data keys. An empty list
// returns nil; the pipeline then expects just the image.
func (p *PipelineSpec) ParsedKeys() ([]augment.DataKey, error) {
	if len(p.Keys) == 0 {
		return nil, nil
	}
	keys := make([]augment.DataKey, len(p.Keys))
	for i, name := range p.Keys {
		k, err := augment.ParseDataKey(name)
		if err != nil {
			return nil, fmt.Errorf("keys[%d]: %w", i, err)
		}
		keys[i] = k
	}
	return keys, nil
}

// GetSeed returns the sampler seed or zero when unset.
func (p *PipelineSpec) GetSeed() uint64 {
	if p.Seed == nil {
		return 0
	}
	return uint64(*p.Seed)
}

// GetVideo returns the video flag or the default.
func (p *PipelineSpec) GetVideo() bool {
	if p.Video == nil {
		return false
	}
	return *p.Video
}

// GetRandomApply returns the random_apply count or zero, which runs all
// transforms.
func (p *PipelineSpec) GetRandomApply() int {
	if p.RandomApply == nil {
		return 0
	}
	return *p.RandomApply
}

// GetRandomOrder returns the random_order flag or the default.
func (p *PipelineSpec) GetRandomOrder() bool {
	if p.RandomOrder == nil {
		return false
	}
	return *p.RandomOrder
}

// Build constructs the pipeline the definition describes: the transform
// list in block order, wrapped in a video or patch stage when requested,
// under a container expecting the configured keys and seed.
func (s *Spec) Build() (*container.Pipeline, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	mods, err := s.BuildTransforms()
	if err != nil {
		return nil, err
	}
	keys, err := s.Pipeline.ParsedKeys()
	if err != nil {
		return nil, err
	}
	cfg := container.PipelineConfig{Keys: keys, Seed: s.Pipeline.GetSeed()}

	children := mods
	switch {
	case s.Pipeline.GetVideo():
		v, err := container.NewVideoSequential(mods...)
		if err != nil {
			return nil, err
		}
		children = []augment.Module{v}
	case len(s.Pipeline.PatchGrid) == 2:
		leaves := make([]augment.Transform, len(mods))
		for i, m := range mods {
			leaf, ok := m.(augment.Transform)
			if !ok {
				return nil, fmt.Errorf("transform %d (%s) cannot run inside a patch stage", i, m.Name())
			}
			leaves[i] = leaf
		}
		grid := container.PatchConfig{GridH: s.Pipeline.PatchGrid[0], GridW: s.Pipeline.PatchGrid[1]}
		q, err := container.NewPatchSequential(grid, leaves...)
		if err != nil {
			return nil, err
		}
		children = []augment.Module{q}
	case s.Pipeline.GetRandomApply() > 0 || s.Pipeline.GetRandomOrder():
		sc := container.SequentialConfig{
			RandomApply: s.Pipeline.GetRandomApply(),
			RandomOrder: s.Pipeline.GetRandomOrder(),
		}
		seq, err := container.NewSequential(sc, mods...)
		if err != nil {
			return nil, err
		}
		children = []augment.Module{seq}
	}

	return container.NewPipeline(cfg, children...)
}

// BuildTransforms constructs the transform list in block order.
func (s *Spec) BuildTransforms() ([]augment.Module, error) {
	mods := make([]augment.Module, 0, len(s.Transforms))
	for i := range s.Transforms {
		m, err := buildTransform(&s.Transforms[i])
		if err != nil {
			return nil, fmt.Errorf("transform %d: %w", i, err)
		}
		mods = append(mods, m)
	}
	return mods, nil
}

func buildTransform(ts *TransformSpec) (augment.Module, error) {
	switch ts.Type {
	case "color_jitter":
		cfg := augment.DefaultColorJitterConfig()
		if ts.Brightness != nil {
			cfg.Brightness = *ts.Brightness
		}
		if ts.Contrast != nil {
			cfg.Contrast = *ts.Contrast
		}
		if ts.Saturation != nil {
			cfg.Saturation = *ts.Saturation
		}
		if ts.P != nil {
			cfg.P = *ts.P
		}
		if ts.SameOnBatch != nil {
			cfg.SameOnBatch = *ts.SameOnBatch
		}
		return augment.NewColorJitter(cfg), nil

	case "horizontal_flip":
		cfg, err := flipConfig(ts)
		if err != nil {
			return nil, err
		}
		return augment.NewRandomHorizontalFlip(cfg), nil

	case "vertical_flip":
		cfg, err := flipConfig(ts)
		if err != nil {
			return nil, err
		}
		return augment.NewRandomVerticalFlip(cfg), nil

	case "rotation":
		cfg := augment.DefaultRotationConfig()
		if ts.Degrees != nil {
			cfg.Degrees = *ts.Degrees
		}
		if ts.P != nil {
			cfg.P = *ts.P
		}
		if ts.SameOnBatch != nil {
			cfg.SameOnBatch = *ts.SameOnBatch
		}
		if ts.Interp != nil {
			ip, err := parseInterp(*ts.Interp)
			if err != nil {
				return nil, err
			}
			cfg.Interp = ip
		}
		return augment.NewRandomRotation(cfg), nil

	case "affine":
		cfg := augment.DefaultAffineConfig()
		if ts.Degrees != nil {
			cfg.Degrees = *ts.Degrees
		}
		if len(ts.Translate) == 2 {
			cfg.Translate = pair(ts.Translate)
		}
		if len(ts.Scale) == 2 {
			cfg.Scale = pair(ts.Scale)
		}
		if ts.P != nil {
			cfg.P = *ts.P
		}
		if ts.SameOnBatch != nil {
			cfg.SameOnBatch = *ts.SameOnBatch
		}
		if ts.Interp != nil {
			ip, err := parseInterp(*ts.Interp)
			if err != nil {
				return nil, err
			}
			cfg.Interp = ip
		}
		return augment.NewRandomAffine(cfg), nil

	case "gaussian_noise":
		cfg := augment.DefaultGaussianNoiseConfig()
		if ts.Mean != nil {
			cfg.Mean = *ts.Mean
		}
		if ts.Std != nil {
			cfg.Std = *ts.Std
		}
		if ts.P != nil {
			cfg.P = *ts.P
		}
		if ts.SameOnBatch != nil {
			cfg.SameOnBatch = *ts.SameOnBatch
		}
		return augment.NewRandomGaussianNoise(cfg), nil

	case "erasing":
		cfg := augment.DefaultErasingConfig()
		if len(ts.Scale) == 2 {
			cfg.Scale = pair(ts.Scale)
		}
		if len(ts.Ratio) == 2 {
			cfg.Ratio = pair(ts.Ratio)
		}
		if ts.Value != nil {
			cfg.Value = *ts.Value
		}
		if ts.P != nil {
			cfg.P = *ts.P
		}
		if ts.SameOnBatch != nil {
			cfg.SameOnBatch = *ts.SameOnBatch
		}
		return augment.NewRandomErasing(cfg), nil

	case "mixup":
		cfg := augment.DefaultMixUpConfig()
		if len(ts.Lambda) == 2 {
			cfg.Lambda = pair(ts.Lambda)
		}
		if ts.P != nil {
			cfg.P = *ts.P
		}
		if ts.SameOnBatch != nil {
			cfg.SameOnBatch = *ts.SameOnBatch
		}
		return augment.NewRandomMixUp(cfg), nil
	}

	return nil, fmt.Errorf("unknown transform type %q (valid types: %s)",
		ts.Type, strings.Join(validTransformTypes, ", "))
}

func flipConfig(ts *TransformSpec) (augment.FlipConfig, error) {
	cfg := augment.DefaultFlipConfig()
	if ts.P != nil {
		cfg.P = *ts.P
	}
	if ts.SameOnBatch != nil {
		cfg.SameOnBatch = *ts.SameOnBatch
	}
	if ts.Interp != nil {
		ip, err := parseInterp(*ts.Interp)
		if err != nil {
			return augment.FlipConfig{}, err
		}
		cfg.Interp = ip
	}
	return cfg, nil
}

func pair(v []float64) [2]float64 { return [2]float64{v[0], v[1]} }
