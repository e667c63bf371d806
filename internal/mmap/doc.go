// Package mmap maps read-only files into memory.
//
// Index files are read once at startup; mapping them avoids a second copy
// of the file in the page cache and heap while it is decoded.
package mmap
