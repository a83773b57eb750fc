// SPDX-License-Identifier: Apache-2.0

package suffixmerge

import (
	"encoding/json"
)

// MergeInto merges docs with [Merge] and decodes the result into dst.
//
// Decoding goes through the result's JSON encoding, so the json struct tags of T
// decide field names, and unknown keys are ignored the way [json.Unmarshal] ignores
// them. Decoding failures are reported as a [*MarshalError] with DocIndex -1.
//
// Example:
//
//	type Config struct {
//		Level string   `json:"level"`
//		Tags  []string `json:"tags"`
//	}
//
//	var cfg Config
//	err := MergeInto(&cfg, base, overlay)
func MergeInto[T any](dst *T, docs ...Value) error {
	result, err := Merge(docs...)
	if err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return &MarshalError{Err: err, DocIndex: -1}
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return &MarshalError{Err: err, DocIndex: -1}
	}
	*dst = out
	return nil
}
