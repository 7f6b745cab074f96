package cache

// NoOpCodec passes sections through untouched. Useful when snapshots
// live on already compressed filesystems or for debugging a payload
// with a hex dump.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

// Compress returns the input slice as is, without copying.
func (NoOpCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns the input slice as is, without copying.
func (NoOpCodec) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
