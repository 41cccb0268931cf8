// Package stores provides the file-backed registries for launchforge.
// Projects and compute instances are kept in two independent JSON documents
// that are read, modified in memory, and written back as a whole per
// operation. There is no cross-process locking; concurrent invocations
// against the same store risk a lost update, which is an accepted limitation
// of the single-operator, single-machine usage model.
package stores
