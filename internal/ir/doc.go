// Package ir provides the value model shared by every rxnenum package.
//
// ir imports nothing internal. Candidates, products and enumeration results
// are defined here so that the engine, pools, templates and the store agree
// on one representation, and so that every persisted blob can be produced
// with the same canonical JSON encoder.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64
//   - Object keys are ordered by UTF-16 code units (RFC 8785)
//   - All JSON tags use snake_case
package ir
