// Package main is the command line front end of the virtual filesystem.
//
// It boots a filesystem from the environment and flags, mounts the source
// and any extra directories or archives, then either runs one provider
// tool, runs a script, or lists the available tools.
//
// Configuration:
//   - Environment variables (VFS_*, LOG_*)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Read a file through the mounted layers
//	vfs -source ./game -tool filesystem.read -params '{"path":"main.lua"}'
//
//	# Write into the save directory of an identity
//	vfs -source ./game -identity mygame -tool filesystem.write \
//	    -params '{"path":"save.txt","data":"hello"}'
//
//	# Mount an extra directory and run a script
//	vfs -source ./game -mount ./mods=mods -script main.js
//
//	# List every tool
//	vfs -list
package main
