// Package drift computes the structural difference between a local and a
// remote agentcore document.
//
// Both documents are converted to generic trees and normalized the same way
// before comparison: volatile metadata (updated_at, last_sync, last_push,
// last_pull, last_full_sync) is stripped from records at any depth. Keys of
// maps holding user-named entities (environments, runtimes, variables) are
// kept even when they spell a volatile field. Numbers become float64, empty
// containers count as absent and sequences are compared as multisets.
// Documents that differ only in key order or volatile fields therefore yield
// an empty Report.
//
// Changes are direction-tagged from the remote's point of view: ADDED means
// only the remote has the value, REMOVED means only the local copy has it and
// VALUE_CHANGED means both hold different values.
package drift
