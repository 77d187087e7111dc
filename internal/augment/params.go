package augment

import (
	"encoding/json"
	"fmt"
)

// ParamMap holds the sampled parameters of one transform application,
// keyed by parameter name with one slice entry per batch element (or per
// batch block, for parameters like noise that carry a value per tensor
// element). Everything a transform needs to reproduce its effect lives
// here; transforms hold no sampled state of their own.
type ParamMap map[string][]float64

// Clone returns a deep copy.
func (p ParamMap) Clone() ParamMap {
	out := make(ParamMap, len(p))
	for k, v := range p {
		c := make([]float64, len(v))
		copy(c, v)
		out[k] = c
	}
	return out
}

// Repeat expands per-element parameter blocks from batch elements to
// batch*times elements, repeating each block times in a row. Video stages
// use it to broadcast one sample across all frames of a clip: the folded
// frame index is b*times+t, so block b lands on every frame of clip b.
func (p ParamMap) Repeat(batch, times int) (ParamMap, error) {
	out := make(ParamMap, len(p))
	for k, v := range p {
		if batch <= 0 || len(v)%batch != 0 {
			return nil, NewError(ErrCodeInternal, "parameter %q length %d not divisible by batch %d", k, len(v), batch)
		}
		block := len(v) / batch
		r := make([]float64, 0, len(v)*times)
		for b := 0; b < batch; b++ {
			for t := 0; t < times; t++ {
				r = append(r, v[b*block:(b+1)*block]...)
			}
		}
		out[k] = r
	}
	return out, nil
}

// Scalar returns the single value stored under key.
func (p ParamMap) Scalar(key string) (float64, error) {
	v, ok := p[key]
	if !ok || len(v) != 1 {
		return 0, NewError(ErrCodeMissingParameters, "parameter %q missing or not scalar", key)
	}
	return v[0], nil
}

// PerBatch returns the values stored under key, checking one per element.
func (p ParamMap) PerBatch(key string, batch int) ([]float64, error) {
	v, ok := p[key]
	if !ok {
		return nil, NewError(ErrCodeMissingParameters, "parameter %q missing", key)
	}
	if len(v) != batch {
		return nil, NewError(ErrCodeShapeMismatch, "parameter %q has %d values for batch %d", key, len(v), batch)
	}
	return v, nil
}

// AppliedMask decodes the batch_prob gate into per-element booleans.
func (p ParamMap) AppliedMask(batch int) ([]bool, error) {
	v, err := p.PerBatch("batch_prob", batch)
	if err != nil {
		return nil, err
	}
	m := make([]bool, batch)
	for i, x := range v {
		m[i] = x != 0
	}
	return m, nil
}

// ParamItem records the parameters one pipeline stage drew during a
// forward pass. Leaf transforms fill Data; containers fill Items with one
// entry per child they ran, in execution order.
type ParamItem struct {
	Name  string      `json:"name"`
	Data  ParamMap    `json:"data,omitempty"`
	Items []ParamItem `json:"items,omitempty"`
}

// Ledger is the complete record of one forward pass: the canonical input
// shape parameters were sampled against, plus the per-stage items. A
// ledger is everything needed to replay a pass bit for bit or to invert
// it, with no hidden state left behind in the pipeline.
type Ledger struct {
	Shape []int       `json:"shape"`
	Items []ParamItem `json:"items"`
}

// Empty reports whether the ledger records nothing.
func (l Ledger) Empty() bool {
	return len(l.Items) == 0
}

// Marshal encodes the ledger as self-contained JSON, suitable for storage.
func (l Ledger) Marshal() ([]byte, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger: %w", err)
	}
	return b, nil
}

// UnmarshalLedger decodes a ledger previously produced by Marshal.
func UnmarshalLedger(b []byte) (Ledger, error) {
	var l Ledger
	if err := json.Unmarshal(b, &l); err != nil {
		return Ledger{}, fmt.Errorf("unmarshal ledger: %w", err)
	}
	return l, nil
}
