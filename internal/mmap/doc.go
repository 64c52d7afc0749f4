// Package mmap provides memory-mapped file access for zero-copy reads.
//
// Snapshot segments are written once and then only read, which makes them
// a good match for read-only mappings: the kernel pages data in on demand
// and evicts it under memory pressure without any copying through heap
// buffers.
//
// # Usage
//
//	m, err := mmap.Open("part-0000018f-0001-00003.seg")
//	if err != nil { ... }
//	defer m.Close()
//
//	// Zero-copy access to file contents
//	data := m.Bytes()
//
//	// Provide kernel hints for access patterns
//	m.Advise(mmap.AccessSequential)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: CreateFileMapping/MapViewOfFile (Advise is a no-op)
//
// # Thread Safety
//
// A Mapping is safe for concurrent read access. Close is idempotent, but
// callers must ensure no goroutine touches Bytes() after Close returns.
package mmap
