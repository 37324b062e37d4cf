// Package projector turns a decoded analyzer report into the finding
// index of one document snapshot.
//
// Projection applies the document's policy: spelling findings are kept
// only when spelling is enabled, findings whose context appears in the
// ignore list or whose rule is ignored are suppressed, and an optional
// script filter gets the final say. Findings with unusable positions are
// skipped one at a time with a warning.
package projector
