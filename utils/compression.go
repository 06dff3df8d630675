package utils

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// CompressionAlgorithm is an HTTP content-coding token.
type CompressionAlgorithm string

const (
	CompressionNone   CompressionAlgorithm = "none"
	CompressionGzip   CompressionAlgorithm = "gzip"
	CompressionBrotli CompressionAlgorithm = "br"
)

// minCompressSize keeps tiny merged-HTML payloads uncompressed.
const minCompressSize = 500

func newEncoder(algorithm CompressionAlgorithm, w io.Writer) (io.WriteCloser, error) {
	switch algorithm {
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionBrotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	}
	return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
}

func newDecoder(algorithm CompressionAlgorithm, r io.Reader) (io.Reader, error) {
	switch algorithm {
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionBrotli:
		return brotli.NewReader(r), nil
	}
	return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
}

func CompressData(data []byte, algorithm CompressionAlgorithm) ([]byte, error) {
	if len(data) == 0 || algorithm == CompressionNone {
		return data, nil
	}
	var buf bytes.Buffer
	enc, err := newEncoder(algorithm, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(data); err != nil {
		return nil, fmt.Errorf("%s encode: %w", algorithm, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%s flush: %w", algorithm, err)
	}
	return buf.Bytes(), nil
}

func DecompressData(compressed []byte, algorithm CompressionAlgorithm) ([]byte, error) {
	if len(compressed) == 0 || algorithm == CompressionNone {
		return compressed, nil
	}
	dec, err := newDecoder(algorithm, bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(dec)
}

// NegotiateCompression picks brotli over gzip when the client accepts it.
func NegotiateCompression(acceptEncoding string, size int) CompressionAlgorithm {
	if size < minCompressSize {
		return CompressionNone
	}
	accepted := strings.ToLower(acceptEncoding)
	switch {
	case strings.Contains(accepted, "br"):
		return CompressionBrotli
	case strings.Contains(accepted, "gzip"):
		return CompressionGzip
	}
	return CompressionNone
}
