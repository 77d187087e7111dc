package container

import (
	"github.com/tessellate-ml/augment/internal/augment"
	"github.com/tessellate-ml/augment/internal/geometry"
	"github.com/tessellate-ml/augment/internal/tensor"
)

// Input is one tagged tensor handed to a pass. Tags travel with the
// tensors, so callers cannot silently swap a mask for a box batch.
type Input struct {
	Key augment.DataKey
	T   *tensor.Dense
}

// In builds a tagged input.
func In(key augment.DataKey, t *tensor.Dense) Input {
	return Input{Key: key, T: t}
}

// Output is one transformed tensor, tagged like the input it came from.
type Output struct {
	Key augment.DataKey
	T   *tensor.Dense
}

// Result carries everything one pass produced: the transformed tensors in
// input order, the label batch if one was given, and the ledger that made
// the pass, which replays or inverts it.
type Result struct {
	Outputs []Output
	Label   *tensor.Dense
	Ledger  augment.Ledger
}

// Tensors returns the output tensors in input order.
func (r *Result) Tensors() []*tensor.Dense {
	out := make([]*tensor.Dense, len(r.Outputs))
	for i, o := range r.Outputs {
		out[i] = o.T
	}
	return out
}

// Single returns the only output, erroring when the pass carried more
// than one tensor. It keeps single-modality callers honest instead of
// letting them index blindly.
func (r *Result) Single() (*tensor.Dense, error) {
	if len(r.Outputs) != 1 {
		return nil, augment.NewError(augment.ErrCodeArityMismatch, "pass produced %d outputs, not one", len(r.Outputs))
	}
	return r.Outputs[0].T, nil
}

// Get returns the first output tagged with key.
func (r *Result) Get(key augment.DataKey) (*tensor.Dense, bool) {
	for _, o := range r.Outputs {
		if o.Key == key {
			return o.T, true
		}
	}
	return nil, false
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Keys []augment.DataKey // Tags every pass must provide; defaults to just the image
	Seed uint64            // Sampler seed; passes with equal seeds and inputs repeat exactly
}

// Pipeline dispatches tagged tensor tuples through a transform sequence.
// One forward pass draws a single parameter ledger and routes every
// modality through it: pixels take the full treatment, masks follow
// geometry and erasing, boxes and keypoints follow geometry only, labels
// pass through mixers. The returned ledger replays or inverts the pass.
//
// A Pipeline owns its sampler and is not safe for concurrent passes;
// give each worker its own instance.
type Pipeline struct {
	cfg     PipelineConfig
	seq     *Sequential
	sampler *augment.Sampler
	video   bool
}

// NewPipeline validates the configuration and children. The expected keys
// must include the image exactly once. A pipeline is a video pipeline
// when its children are video stages; mixing video stages with plain
// children is rejected, since both cannot read the same input rank.
func NewPipeline(cfg PipelineConfig, children ...augment.Module) (*Pipeline, error) {
	if len(cfg.Keys) == 0 {
		cfg.Keys = []augment.DataKey{augment.KeyInput}
	}
	inputs := 0
	for _, k := range cfg.Keys {
		if !k.Valid() {
			return nil, augment.NewError(augment.ErrCodeUnsupportedModality, "unknown data key %d", int(k))
		}
		if k == augment.KeyInput {
			inputs++
		}
	}
	if inputs != 1 {
		return nil, augment.NewError(augment.ErrCodeConfiguration, "expected keys must name the image exactly once, got %d", inputs)
	}

	video := 0
	for _, c := range children {
		if c.Kind() == augment.KindVideo {
			video++
		}
	}
	if video > 0 && video != len(children) {
		return nil, augment.NewError(augment.ErrCodeConfiguration, "video stages cannot be mixed with frame-level children at the top")
	}

	seq, err := newSequential(SequentialConfig{}, true, children...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:     cfg,
		seq:     seq,
		sampler: augment.NewSampler(cfg.Seed),
		video:   video > 0,
	}, nil
}

// Video reports whether this pipeline reads clip batches (B, T, C, H, W).
func (p *Pipeline) Video() bool { return p.video }

// Keys returns the expected tags.
func (p *Pipeline) Keys() []augment.DataKey { return p.cfg.Keys }

// MixesLabels reports whether any stage rewrites labels.
func (p *Pipeline) MixesLabels() bool { return p.seq.HasLabelMixer() }

// Option tweaks one pass.
type Option func(*passConfig)

type passConfig struct {
	ledger *augment.Ledger
	label  *tensor.Dense
}

// WithLedger replays or inverts under a recorded ledger instead of
// drawing fresh parameters.
func WithLedger(l augment.Ledger) Option {
	return func(pc *passConfig) { pc.ledger = &l }
}

// WithLabel routes a (B,) label batch through the pass.
func WithLabel(t *tensor.Dense) Option {
	return func(pc *passConfig) { pc.label = t }
}

// ForwardParameters draws a fresh ledger for the canonical shape without
// touching any tensors. Benchmarks and previews use it to separate
// sampling from application.
func (p *Pipeline) ForwardParameters(shape []int) (augment.Ledger, error) {
	want := 4
	if p.video {
		want = 5
	}
	if len(shape) != want {
		return augment.Ledger{}, augment.NewError(augment.ErrCodeShapeMismatch, "parameters are drawn against a rank-%d shape, got %v", want, shape)
	}
	item, err := p.seq.ParamsTree(shape, p.sampler)
	if err != nil {
		return augment.Ledger{}, err
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return augment.Ledger{Shape: s, Items: item.Items}, nil
}

// Forward runs one augmentation pass. Without a ledger the full key
// multiset is expected and the image batch drives fresh sampling. With
// WithLedger the recorded parameters replay instead, and any subset of
// the keys may be given, the image included or not, since the ledger
// remembers the canonical shape.
func (p *Pipeline) Forward(ins []Input, opts ...Option) (*Result, error) {
	var pc passConfig
	for _, o := range opts {
		o(&pc)
	}

	var led augment.Ledger
	switch {
	case pc.ledger == nil:
		img := findInput(ins)
		if img == nil {
			return nil, augment.NewError(augment.ErrCodeMissingInput, "forward without a ledger needs the image batch to draw parameters")
		}
		if err := p.checkArity(ins); err != nil {
			return nil, err
		}
		canon, _, err := p.canonicalInput(img)
		if err != nil {
			return nil, err
		}
		if led, err = p.ForwardParameters(canon.Shape()); err != nil {
			return nil, err
		}
	case pc.ledger.Empty():
		return nil, augment.NewError(augment.ErrCodeMissingParameters, "replay ledger is empty")
	default:
		led = *pc.ledger
		if err := p.checkLedgerShape(led); err != nil {
			return nil, err
		}
		if err := p.checkSubset(ins); err != nil {
			return nil, err
		}
	}

	stages, err := p.stages(led)
	if err != nil {
		return nil, err
	}
	hw := spatial(led.Shape)
	augment.Diagf("forward: %d stages, shape %v, %d tensors", len(stages), led.Shape, len(ins))

	outs := make([]Output, len(ins))
	for i, in := range ins {
		out, err := p.forwardOne(in, stages, led.Shape, hw)
		if err != nil {
			return nil, err
		}
		outs[i] = Output{Key: in.Key, T: out}
	}

	label := pc.label
	if label != nil {
		if err := p.checkLabel(label, led.Shape[0]); err != nil {
			return nil, err
		}
		for _, st := range stages {
			if label, err = forwardLabel(st.mod, st.item, label); err != nil {
				return nil, err
			}
		}
	}
	return &Result{Outputs: outs, Label: label, Ledger: led}, nil
}

// Inverse undoes a recorded pass on the given tensors, walking the ledger
// backwards. It requires the ledger; there is no hidden state to fall
// back on. The image batch is optional here, since the ledger remembers
// the canonical shape.
func (p *Pipeline) Inverse(ins []Input, opts ...Option) (*Result, error) {
	var pc passConfig
	for _, o := range opts {
		o(&pc)
	}
	if pc.ledger == nil || pc.ledger.Empty() {
		return nil, augment.NewError(augment.ErrCodeMissingParameters, "inverse needs the ledger of the pass to undo")
	}
	led := *pc.ledger
	if err := p.checkLedgerShape(led); err != nil {
		return nil, err
	}
	if err := p.checkSubset(ins); err != nil {
		return nil, err
	}
	stages, err := p.stages(led)
	if err != nil {
		return nil, err
	}
	reverse(stages)
	hw := spatial(led.Shape)
	augment.Diagf("inverse: %d stages, shape %v, %d tensors", len(stages), led.Shape, len(ins))

	outs := make([]Output, len(ins))
	for i, in := range ins {
		out, err := p.inverseOne(in, stages, led.Shape, hw)
		if err != nil {
			return nil, err
		}
		outs[i] = Output{Key: in.Key, T: out}
	}
	return &Result{Outputs: outs, Label: pc.label, Ledger: led}, nil
}

// forwardOne routes one tagged tensor through the resolved stages.
func (p *Pipeline) forwardOne(in Input, stages []stage, canonShape []int, hw [2]int) (*tensor.Dense, error) {
	switch {
	case in.Key == augment.KeyInput:
		canon, orig, err := p.canonicalInput(in.T)
		if err != nil {
			return nil, err
		}
		if !equalInts(canon.Shape(), canonShape) {
			return nil, augment.NewError(augment.ErrCodeShapeMismatch, "ledger was drawn for shape %v, input is %v", canonShape, canon.Shape())
		}
		cur := canon
		for _, st := range stages {
			if cur, err = forwardInput(st.mod, st.item, cur); err != nil {
				return nil, err
			}
		}
		return cur.Reshape(orig...)

	case in.Key == augment.KeyMask:
		canon, orig, err := p.canonicalMask(in.T, canonShape)
		if err != nil {
			return nil, err
		}
		cur := canon
		for _, st := range stages {
			if cur, err = forwardExtra(in.Key, st.mod, st.item, cur, hw); err != nil {
				return nil, err
			}
		}
		return cur.Reshape(orig...)

	case in.Key.IsBox():
		boxes, err := p.canonicalBoxes(in.T, in.Key, canonShape)
		if err != nil {
			return nil, err
		}
		cur := boxes.Data()
		for _, st := range stages {
			if cur, err = forwardExtra(in.Key, st.mod, st.item, cur, hw); err != nil {
				return nil, err
			}
		}
		return boxes.WithData(cur).ToTensor()

	case in.Key == augment.KeyKeypoints:
		canon, squeezed, err := p.canonicalKeypoints(in.T, canonShape)
		if err != nil {
			return nil, err
		}
		cur := canon
		for _, st := range stages {
			if cur, err = forwardExtra(in.Key, st.mod, st.item, cur, hw); err != nil {
				return nil, err
			}
		}
		return squeezeKeypoints(cur, squeezed)

	default:
		return nil, augment.NewError(augment.ErrCodeUnsupportedModality, "no dispatch for %s", in.Key)
	}
}

// inverseOne routes one tagged tensor backwards through the stages.
func (p *Pipeline) inverseOne(in Input, stages []stage, canonShape []int, hw [2]int) (*tensor.Dense, error) {
	switch {
	case in.Key == augment.KeyInput:
		canon, orig, err := p.canonicalInput(in.T)
		if err != nil {
			return nil, err
		}
		if !equalInts(canon.Shape(), canonShape) {
			return nil, augment.NewError(augment.ErrCodeShapeMismatch, "ledger was drawn for shape %v, input is %v", canonShape, canon.Shape())
		}
		cur := canon
		for _, st := range stages {
			if cur, err = inverseInput(st.mod, st.item, cur); err != nil {
				return nil, err
			}
		}
		return cur.Reshape(orig...)

	case in.Key == augment.KeyMask:
		canon, orig, err := p.canonicalMask(in.T, canonShape)
		if err != nil {
			return nil, err
		}
		cur := canon
		for _, st := range stages {
			if cur, err = inverseExtra(in.Key, st.mod, st.item, cur, hw); err != nil {
				return nil, err
			}
		}
		return cur.Reshape(orig...)

	case in.Key.IsBox():
		boxes, err := p.canonicalBoxes(in.T, in.Key, canonShape)
		if err != nil {
			return nil, err
		}
		cur := boxes.Data()
		for _, st := range stages {
			if cur, err = inverseExtra(in.Key, st.mod, st.item, cur, hw); err != nil {
				return nil, err
			}
		}
		return boxes.WithData(cur).ToTensor()

	case in.Key == augment.KeyKeypoints:
		canon, squeezed, err := p.canonicalKeypoints(in.T, canonShape)
		if err != nil {
			return nil, err
		}
		cur := canon
		for _, st := range stages {
			if cur, err = inverseExtra(in.Key, st.mod, st.item, cur, hw); err != nil {
				return nil, err
			}
		}
		return squeezeKeypoints(cur, squeezed)

	default:
		return nil, augment.NewError(augment.ErrCodeUnsupportedModality, "no dispatch for %s", in.Key)
	}
}

// stage pairs a module with its recorded parameters.
type stage struct {
	mod  augment.Module
	item augment.ParamItem
}

// stages resolves the ledger's top-level items back to modules, in the
// recorded order.
func (p *Pipeline) stages(led augment.Ledger) ([]stage, error) {
	out := make([]stage, 0, len(led.Items))
	for _, item := range led.Items {
		mod, err := p.seq.Submodule(item.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, stage{mod: mod, item: item})
	}
	return out, nil
}

// checkArity verifies the tagged tensors against the configured keys as a
// multiset: same tags, same counts, order free.
func (p *Pipeline) checkArity(ins []Input) error {
	want := make(map[augment.DataKey]int, len(p.cfg.Keys))
	for _, k := range p.cfg.Keys {
		want[k]++
	}
	got := make(map[augment.DataKey]int, len(ins))
	for _, in := range ins {
		if in.T == nil {
			return augment.NewError(augment.ErrCodeArityMismatch, "nil tensor tagged %s", in.Key)
		}
		got[in.Key]++
	}
	if len(ins) != len(p.cfg.Keys) {
		return augment.NewError(augment.ErrCodeArityMismatch, "%d tensors for %d configured keys", len(ins), len(p.cfg.Keys))
	}
	for k, n := range want {
		if got[k] != n {
			return augment.NewError(augment.ErrCodeArityMismatch, "expected %d tensor(s) tagged %s, got %d", n, k, got[k])
		}
	}
	for k := range got {
		if want[k] == 0 {
			return augment.NewError(augment.ErrCodeArityMismatch, "unexpected tensor tagged %s", k)
		}
	}
	return nil
}

// checkSubset verifies the tensors of a ledger-driven pass: at least
// one, all tagged with configured keys. The full multiset is not
// required, since the ledger remembers the canonical shape.
func (p *Pipeline) checkSubset(ins []Input) error {
	if len(ins) == 0 {
		return augment.NewError(augment.ErrCodeArityMismatch, "at least one tagged tensor is needed")
	}
	allowed := make(map[augment.DataKey]bool, len(p.cfg.Keys))
	for _, k := range p.cfg.Keys {
		allowed[k] = true
	}
	for _, in := range ins {
		if in.T == nil {
			return augment.NewError(augment.ErrCodeArityMismatch, "nil tensor tagged %s", in.Key)
		}
		if !allowed[in.Key] {
			return augment.NewError(augment.ErrCodeArityMismatch, "%s is not among this pipeline's keys", in.Key)
		}
	}
	return nil
}

// checkLedgerShape verifies a recorded canonical shape fits this
// pipeline's rank.
func (p *Pipeline) checkLedgerShape(led augment.Ledger) error {
	want := 4
	if p.video {
		want = 5
	}
	if len(led.Shape) != want {
		return augment.NewError(augment.ErrCodeShapeMismatch, "ledger shape %v does not fit a rank-%d pipeline", led.Shape, want)
	}
	return nil
}

func findInput(ins []Input) *tensor.Dense {
	for _, in := range ins {
		if in.Key == augment.KeyInput {
			return in.T
		}
	}
	return nil
}

// canonicalInput completes the image rank: frame pipelines accept
// (H, W) up to (B, C, H, W), video pipelines (C, H, W) up to
// (B, T, C, H, W). Returns the canonical tensor and the original shape
// for repacking.
func (p *Pipeline) canonicalInput(img *tensor.Dense) (*tensor.Dense, []int, error) {
	min, max := 2, 4
	if p.video {
		min, max = 3, 5
	}
	canon, orig, err := img.Autofill(min, max)
	if err != nil {
		return nil, nil, augment.WrapError(augment.ErrCodeShapeMismatch, err, "image batch")
	}
	return canon, orig, nil
}

// canonicalMask completes the mask rank the same way and checks it agrees
// with the image batch and spatial size.
func (p *Pipeline) canonicalMask(mask *tensor.Dense, imgShape []int) (*tensor.Dense, []int, error) {
	min, max := 2, 4
	if p.video {
		min, max = 3, 5
	}
	canon, orig, err := mask.Autofill(min, max)
	if err != nil {
		return nil, nil, augment.WrapError(augment.ErrCodeShapeMismatch, err, "mask batch")
	}
	ms, is := canon.Shape(), imgShape
	if ms[0] != is[0] {
		return nil, nil, augment.NewError(augment.ErrCodeShapeMismatch, "mask batch %d, image batch %d", ms[0], is[0])
	}
	if p.video && ms[1] != is[1] {
		return nil, nil, augment.NewError(augment.ErrCodeShapeMismatch, "mask has %d frames, image %d", ms[1], is[1])
	}
	if ms[len(ms)-2] != is[len(is)-2] || ms[len(ms)-1] != is[len(is)-1] {
		return nil, nil, augment.NewError(augment.ErrCodeShapeMismatch, "mask size %dx%d, image %dx%d", ms[len(ms)-2], ms[len(ms)-1], is[len(is)-2], is[len(is)-1])
	}
	return canon, orig, nil
}

// canonicalBoxes converts a box tensor to the unified vertex layout and
// checks the leading dims against the image batch.
func (p *Pipeline) canonicalBoxes(t *tensor.Dense, key augment.DataKey, imgShape []int) (*geometry.Boxes, error) {
	mode, ok := key.BoxMode()
	if !ok {
		return nil, augment.NewError(augment.ErrCodeInternal, "%s is not a box key", key)
	}
	leading := 1
	if p.video {
		leading = 2
	}
	boxes, err := geometry.BoxesFromTensor(t, mode, leading)
	if err != nil {
		return nil, augment.WrapError(augment.ErrCodeShapeMismatch, err, "%s batch", key)
	}
	bs := boxes.Data().Shape()
	if bs[0] != imgShape[0] {
		return nil, augment.NewError(augment.ErrCodeShapeMismatch, "%s batch %d, image batch %d", key, bs[0], imgShape[0])
	}
	if p.video && bs[1] != imgShape[1] {
		return nil, augment.NewError(augment.ErrCodeShapeMismatch, "%s has %d frames, image %d", key, bs[1], imgShape[1])
	}
	return boxes, nil
}

// canonicalKeypoints completes a keypoint tensor to (B, N, 2), or
// (B, T, N, 2) for video, tracking whether a singleton N was implied.
func (p *Pipeline) canonicalKeypoints(t *tensor.Dense, imgShape []int) (*tensor.Dense, bool, error) {
	lead := 1
	if p.video {
		lead = 2
	}
	dims := t.Dims()
	if dims < lead+1 || t.Dim(dims-1) != 2 {
		return nil, false, augment.NewError(augment.ErrCodeShapeMismatch, "keypoints want (..., N, 2) with explicit batch, got shape %v", t.Shape())
	}
	squeezed := false
	canon := t
	if dims == lead+1 {
		shape := append(append([]int{}, t.Shape()[:lead]...), 1, 2)
		var err error
		if canon, err = t.Clone().Reshape(shape...); err != nil {
			return nil, false, augment.WrapError(augment.ErrCodeShapeMismatch, err, "keypoints")
		}
		squeezed = true
	} else if dims != lead+2 {
		return nil, false, augment.NewError(augment.ErrCodeShapeMismatch, "keypoints want (..., N, 2), got shape %v", t.Shape())
	}
	ks := canon.Shape()
	if ks[0] != imgShape[0] {
		return nil, false, augment.NewError(augment.ErrCodeShapeMismatch, "keypoints batch %d, image batch %d", ks[0], imgShape[0])
	}
	if p.video && ks[1] != imgShape[1] {
		return nil, false, augment.NewError(augment.ErrCodeShapeMismatch, "keypoints have %d frames, image %d", ks[1], imgShape[1])
	}
	return canon, squeezed, nil
}

func squeezeKeypoints(t *tensor.Dense, squeezed bool) (*tensor.Dense, error) {
	if !squeezed {
		return t, nil
	}
	s := t.Shape()
	out := append(append([]int{}, s[:len(s)-2]...), 2)
	return t.Reshape(out...)
}

func (p *Pipeline) checkLabel(label *tensor.Dense, batch int) error {
	if label.Dims() != 1 || label.Dim(0) != batch {
		return augment.NewError(augment.ErrCodeShapeMismatch, "labels want shape (%d,), got %v", batch, label.Shape())
	}
	return nil
}

func spatial(shape []int) [2]int {
	return [2]int{shape[len(shape)-2], shape[len(shape)-1]}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func reverse(s []stage) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
