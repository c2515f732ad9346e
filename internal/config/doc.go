// Package config holds the tunable threshold parameters of the dot finder.
//
// ThresholdConfig is a plain value. Store keeps the current value behind an
// atomic pointer: updates swap in a complete, validated value and readers
// take a copy, so no reader ever sees a mix of old and new fields.
//
// Values come from Default, from a JSON file (LoadFile) at startup, and from
// JSON updates received at runtime (Store.Apply). JSON field names are
// snake_case and any field may be omitted:
//
//	{"low_hue": -10, "high_hue": 20, "threshold": 180, "min_blob_area": 12}
package config
