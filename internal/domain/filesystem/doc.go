// Package filesystem is the virtual filesystem facade. It combines the
// archive backend and the mount table behind one lock, resolves identity
// scoped save directories, and exposes file handles, whole-file helpers,
// the require loader and an io/fs view of the merged namespace.
//
// Virtual paths use "/" separators, are relative to the virtual root and
// never contain "..". Writes go to the save directory of the current
// identity, which is created on first use.
package filesystem
