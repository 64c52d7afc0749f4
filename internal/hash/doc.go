// Package hash provides hardware-accelerated hashing for data integrity.
//
// # CRC32-Castagnoli (CRC32C)
//
// Snapshot segments and object uploads checksum with CRC32-Castagnoli,
// which provides:
//
//   - Hardware acceleration on x86 (SSE4.2) and ARM (CRC extension)
//   - Superior error detection compared to CRC32-IEEE
//   - Industry standard (iSCSI, Btrfs, RocksDB, LevelDB, S3 object checksums)
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
//
// The polynomial table is computed once at package init. Go's crc32 package
// automatically uses hardware instructions when available.
package hash
