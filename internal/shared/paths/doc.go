// Package paths normalizes virtual paths and resolves common paths.
//
// Virtual paths are always slash separated and relative to the root of the
// merged namespace; the root itself normalizes to the empty string. Any
// parent-directory segment is rejected rather than resolved, so a path can
// never climb out of the mount that serves it.
//
// # Common Paths
//
// A CommonPath names a platform-independent root:
//
//	userhome       home directory of the current user
//	userdocuments  the user's documents directory
//	userappdata    per-user application data root
//	appsavedir     <userappdata>/[<appdata folder>/]<identity>
//	appdocuments   <userdocuments>/[<appdata folder>/]<identity>
//
// The two app-scoped entries depend on the identity and resolve to the empty
// string until one is set. Platform lookups live behind the Platform
// interface, with one implementation per target OS.
//
// # Usage
//
//	resolver := paths.NewResolver(nil, "vfs")
//	save, err := resolver.Resolve(paths.AppSaveDir, "mygame", false, exe)
//
//	clean, err := paths.Normalize("/assets//sprites/./hero.png")
//	// clean == "assets/sprites/hero.png"
package paths
