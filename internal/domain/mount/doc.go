// Package mount records what is mounted where and owns the identity swap.
//
// A Table sits in front of the archive backend. Every mount goes through it,
// so it can refuse duplicate keys, remember which entries belong to a common
// path, and retain in-memory archives for as long as they are mounted.
//
// Changing the identity moves the app-scoped mounts (the save directory and
// the app documents directory) to their new locations:
//
//  1. snapshot which app-scoped paths are mounted
//  2. unmount them
//  3. forget their cached concrete paths
//  4. install the new identity
//  5. mount the new save directory, or defer it until SetupWriteDirectory
//  6. remount the other app-scoped paths at their old mount points
//
// Failures after step 2 are collected and returned, but never undo the new
// identity.
//
// A Table is not safe for concurrent use; its owner serialises access.
package mount
