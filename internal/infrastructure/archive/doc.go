// Package archive layers real directories and archive files into one virtual
// namespace on top of github.com/spf13/afero.
//
// Each mount becomes a layer with a key (the real path, or an opaque key for
// in-memory archives) and a virtual mount point. Lookups walk the layers in
// order and the first hit wins, so prepended mounts shadow appended ones.
// Mount points also materialise the directories leading to them.
//
// Writes never go through the layers. They target the single write directory,
// which is set by SetWriteDir or by a read-write mount, and are addressed by
// virtual path relative to that directory.
package archive
