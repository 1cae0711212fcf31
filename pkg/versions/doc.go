// Package versions manages the immutable version history and endpoint
// pointer table of an agent runtime.
//
// Version ids are ordinal tokens ("V1", "V2", ...) allocated from a per-runtime
// high-water mark, so an id is never reused after deletion. Records move
// CREATING -> READY | FAILED -> DELETING and are otherwise never edited.
// Endpoints are named pointers to version ids; repointing one is how a
// deployment is promoted or rolled back.
package versions
