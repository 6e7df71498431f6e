package codec

import (
	"bytes"
	"compress/gzip"
	"io"
)

// DefaultCompressionThreshold is the payload size in bytes above which
// encoded entries are gzip-compressed before hitting the store.
const DefaultCompressionThreshold = 1024

// Compressor applies size-gated gzip compression to encoded payloads.
// Whether a payload was compressed is recorded in entry metadata, never
// inferred from content.
type Compressor struct {
	// Threshold in bytes; payloads strictly larger are compressed.
	// 0 means DefaultCompressionThreshold.
	Threshold int
}

func (c Compressor) threshold() int {
	if c.Threshold <= 0 {
		return DefaultCompressionThreshold
	}
	return c.Threshold
}

// Compress gzips b when it exceeds the threshold. The bool result is the
// compressed flag to record in metadata.
func (c Compressor) Compress(b []byte) ([]byte, bool) {
	if len(b) <= c.threshold() {
		return b, false
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_, _ = zw.Write(b)
	_ = zw.Close()
	return buf.Bytes(), true
}

// Decompress reverses Compress according to the recorded flag. Corrupt
// gzip streams return an error; callers treat that as a miss.
func (c Compressor) Decompress(b []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return b, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
