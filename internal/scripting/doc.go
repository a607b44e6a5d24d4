// Package scripting runs JavaScript against the virtual filesystem.
//
// Scripts see a "filesystem" global for reading, writing and listing files
// and a CommonJS style require that resolves modules through the
// filesystem's require path, so modules load from whichever mounted layer
// provides them first. Execution is bounded by a timeout and the caller's
// context.
package scripting
