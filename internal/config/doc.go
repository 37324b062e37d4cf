// Package config resolves gramcheck configuration.
//
// Values come from layers, lowest priority first: compiled-in defaults,
// the system file, the user file, GRAMCHECK_* environment variables and,
// for a Document, the document's own stored values. Scalars resolve from
// the highest layer that sets them; maps merge key by key; the ignore
// lists are the union of every layer.
//
// Writes target a Level. Level 0 is the document, 1 the user file and
// 2 the system file, so a quick fix can record an ignored error for one
// document or add a word for every document of the user.
//
// Every change is published through a notify.Notifier; document changes
// carry the document URI as their scope.
package config
