// Package response turns raw transport output into a structured response.
//
// Output produced with --include consists of a header section, one blank
// line and the body. Split performs that division; Parse and FromLines add
// the status line, a header map and helpers to query JSON bodies with gjson
// paths or validate them against a JSON Schema.
package response
