// Package remote implements the mirrors that hold the shared copy of the
// agentcore document.
//
// A mirror is a single-key store: the whole document is serialized as JSON
// and written under Key(prefix), which is "<prefix>/config". Backends:
//
//   - SSMMirror stores the document as an SSM Parameter Store parameter.
//   - S3Mirror stores it as an object in a bucket.
//   - RedisMirror stores it as a Redis string.
//   - MemoryMirror keeps it in process and is used by tests.
//
// EncryptedMirror wraps any of them and seals the payload with age before it
// leaves the host.
//
// Every backend reports a missing key with an error matching
// engine.ErrRemoteNotFound and any other failure as an adapter error whose
// code tells permission, throttling and network problems apart.
package remote
