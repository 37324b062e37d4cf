// Package metadata persists per-document configuration.
//
// Each document, identified by its URI, owns one JSON object holding the
// configuration values set at document level. Stores only move bytes;
// reading and editing the JSON is the caller's business.
package metadata
