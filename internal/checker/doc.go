// Package checker connects documents to the analysis dispatcher.
//
// A Checker belongs to one document. It waits for edits to settle,
// submits itself to the Session's Dispatcher, projects the analyzer's
// report into a fresh finding.Index and answers position queries for
// tooltips and quick fixes. A Session owns the Dispatcher and the
// Checkers of one window.
//
// Idle detection counts Session ticks: every edit resets a countdown to
// auto-analyze.wait-ticks and the Checker submits itself when it reaches
// zero. A Checker never has more than one request queued; its requested
// flag stays raised from submission until the analyzer starts.
package checker
