package sparse

import (
	"encoding/json"
)

// Trace records how a reference was followed to its value.
type Trace struct {
	Ref      string `json:"ref"`
	Hops     []Hop  `json:"hops"`
	Resolved bool   `json:"resolved"`
}

// Hop is one pointer dereference inside a Trace.
type Hop struct {
	Raw     string `json:"raw"`
	Path    string `json:"path"`
	Pointer string `json:"pointer"`
	Version uint64 `json:"version"`
}

// Target returns the last hop, the document location holding the value.
func (t Trace) Target() (Hop, bool) {
	if len(t.Hops) == 0 {
		return Hop{}, false
	}
	return t.Hops[len(t.Hops)-1], true
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
