// Package collab replicates buffer mutations between editing sites.
//
// An Adapter borrows a document's buffer and applier for the duration of a
// Bind/Unbind pair. Local buffer changes are encoded as Ops and sent on a
// room channel; Ops arriving from other sites are written back through the
// applier, so they are serialized with local edits and never echoed.
//
// There is no conflict resolution: concurrent edits at overlapping
// positions may diverge, and an Op that no longer fits the buffer is
// logged and dropped. A reconnect picks up with new operations only.
package collab
