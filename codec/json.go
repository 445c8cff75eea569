package codec

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errTrailingJSON = errors.New("codec: trailing data after JSON value")

// JSON stores values as encoding/json documents.
//
// With Strict set, Decode fails on fields V does not declare and on trailing
// data, which turns entries written under an older shape of V into decode
// errors instead of silently partial values.
type JSON[V any] struct {
	Strict bool
}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (j JSON[V]) Decode(b []byte) (V, error) {
	var v V
	if !j.Strict {
		err := json.Unmarshal(b, &v)
		return v, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if dec.More() {
		return v, errTrailingJSON
	}
	return v, nil
}
