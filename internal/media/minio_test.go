package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpoint(t *testing.T) {
	host, secure := normalizeEndpoint("minio:9000")
	require.Equal(t, "minio:9000", host)
	require.False(t, secure)

	host, secure = normalizeEndpoint("http://minio:9000")
	require.Equal(t, "minio:9000", host)
	require.False(t, secure)

	host, secure = normalizeEndpoint("https://storage.example.com")
	require.Equal(t, "storage.example.com", host)
	require.True(t, secure)

	host, secure = normalizeEndpoint("localhost:9000")
	require.Equal(t, "localhost:9000", host)
	require.False(t, secure)
}
