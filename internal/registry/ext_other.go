//go:build !windows

package registry

// LibraryExt is the dynamic library suffix searched during discovery.
const LibraryExt = ".so"
