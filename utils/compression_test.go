package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiateCompression(t *testing.T) {
	assert.Equal(t, CompressionNone, NegotiateCompression("br, gzip", 100))
	assert.Equal(t, CompressionBrotli, NegotiateCompression("gzip, deflate, br", 4096))
	assert.Equal(t, CompressionGzip, NegotiateCompression("gzip", 4096))
	assert.Equal(t, CompressionNone, NegotiateCompression("", 4096))
}

func TestCompressBrotli(t *testing.T) {
	html := strings.Repeat("<tr><td>apple</td><td>3</td></tr>", 200)

	compressed, err := CompressData([]byte(html), CompressionBrotli)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(html))

	plain, err := DecompressData(compressed, CompressionBrotli)
	require.NoError(t, err)
	assert.Equal(t, html, string(plain))
}
