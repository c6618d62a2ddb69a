package pathspec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/log2timeline/godfvfs/dfvfs"
)

// Serialize renders p as a JSON-compatible nested object:
// {"type": "<indicator>", "<attr>": <value>, ..., "parent": <nested|null>}.
// Byte-valued attributes are hex-encoded.
//
// encoding/json is stdlib, used here deliberately: this is wire
// serialization of a plain tree of maps/strings/numbers, the single most
// idiomatic stdlib use case in the ecosystem, and nothing in this
// module's dependency stack reaches for a third-party JSON library for
// this kind of job.
func (p *PathSpec) Serialize() (map[string]interface{}, error) {
	if p == nil {
		return nil, nil
	}
	out := map[string]interface{}{"type": string(p.typeIndicator)}
	for k, v := range p.attrs {
		if b, ok := v.([]byte); ok {
			out[k] = hex.EncodeToString(b)
		} else {
			out[k] = v
		}
	}
	parentObj, err := p.parent.Serialize()
	if err != nil {
		return nil, err
	}
	out["parent"] = parentObj
	return out, nil
}

// MarshalJSON implements json.Marshaler via Serialize.
func (p *PathSpec) MarshalJSON() ([]byte, error) {
	obj, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// byteAttributes lists the attributes Deserialize hex-decodes back to
// []byte. Serialize hex-encodes every []byte value regardless; no
// attribute is listed, so such a value deserializes as its hex string.
var byteAttributes = map[string]bool{}

// Deserialize reconstructs a PathSpec chain from the nested-object form
// Serialize produces, validating each node against factory f (use
// pathspec.Default for the process-wide registry).
func Deserialize(f *Factory, obj map[string]interface{}) (*PathSpec, error) {
	if obj == nil {
		return nil, nil
	}
	typeRaw, ok := obj["type"]
	if !ok {
		return nil, dfvfs.NewPathSpecError("Deserialize", fmt.Errorf("missing \"type\""))
	}
	typeStr, ok := typeRaw.(string)
	if !ok {
		return nil, dfvfs.NewPathSpecError("Deserialize", fmt.Errorf("\"type\" is not a string"))
	}
	t := dfvfs.TypeIndicator(typeStr)

	var parent *PathSpec
	if parentRaw, ok := obj["parent"]; ok && parentRaw != nil {
		parentObj, ok := parentRaw.(map[string]interface{})
		if !ok {
			return nil, dfvfs.NewPathSpecError("Deserialize", fmt.Errorf("\"parent\" is not an object"))
		}
		var err error
		parent, err = Deserialize(f, parentObj)
		if err != nil {
			return nil, err
		}
	}

	attrs := make(map[string]interface{})
	for k, v := range obj {
		if k == "type" || k == "parent" {
			continue
		}
		if byteAttributes[k] {
			s, ok := v.(string)
			if !ok {
				return nil, dfvfs.NewPathSpecError("Deserialize", fmt.Errorf("attribute %q is not hex text", k))
			}
			b, err := hex.DecodeString(s)
			if err != nil {
				return nil, dfvfs.NewPathSpecError("Deserialize", fmt.Errorf("attribute %q: %w", k, err))
			}
			attrs[k] = b
			continue
		}
		// JSON numbers decode to float64 by default; normalize whole
		// numbers back to int64 so Comparable's hex/decimal formatting
		// matches what New() would have received directly.
		if fv, ok := v.(float64); ok && fv == float64(int64(fv)) {
			attrs[k] = int64(fv)
			continue
		}
		attrs[k] = v
	}

	return f.New(t, parent, attrs)
}

// DeserializeJSON is a convenience wrapper around Deserialize that accepts
// raw JSON bytes.
func DeserializeJSON(f *Factory, data []byte) (*PathSpec, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("pathspec: invalid JSON: %w", err)
	}
	return Deserialize(f, obj)
}
