package broadcast

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAudioFile(t *testing.T) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), "input.wav")
	require.NoError(t, os.WriteFile(file, []byte("RIFF"), 0644))
	return file
}

func TestConfigValidate(t *testing.T) {
	file := testAudioFile(t)
	dir := t.TempDir()

	tests := []struct {
		name   string
		config Config
		field  string
	}{
		{
			name:   "valid IPv4 broadcast address",
			config: Config{Address: "172.17.3.255", Port: 4455, FilePath: file},
		},
		{
			name:   "valid IPv6 address",
			config: Config{Address: "ff02::1", Port: 5004, FilePath: file},
		},
		{
			name:   "valid bracketed IPv6 address",
			config: Config{Address: "[::1]", Port: 5004, FilePath: file},
		},
		{
			name:   "valid host name",
			config: Config{Address: "speakers.local", Port: 1, FilePath: file},
		},
		{
			name:   "highest port",
			config: Config{Address: "127.0.0.1", Port: 65535, FilePath: file},
		},
		{
			name:   "empty address",
			config: Config{Address: " ", Port: 4455, FilePath: file},
			field:  "address",
		},
		{
			name:   "address with scheme",
			config: Config{Address: "udp://127.0.0.1", Port: 4455, FilePath: file},
			field:  "address",
		},
		{
			name:   "IPv4 octet out of range",
			config: Config{Address: "999.1.1.1", Port: 4455, FilePath: file},
			field:  "address",
		},
		{
			name:   "IPv4 all octets out of range",
			config: Config{Address: "256.256.256.256", Port: 4455, FilePath: file},
			field:  "address",
		},
		{
			name:   "IPv4 too few octets",
			config: Config{Address: "1.2.3", Port: 4455, FilePath: file},
			field:  "address",
		},
		{
			name:   "IPv4 too many octets",
			config: Config{Address: "10.0.0.1.5", Port: 4455, FilePath: file},
			field:  "address",
		},
		{
			name:   "numeric host",
			config: Config{Address: "4455", Port: 4455, FilePath: file},
			field:  "address",
		},
		{
			name:   "host name with digits",
			config: Config{Address: "room-2.speakers1.local", Port: 4455, FilePath: file},
		},
		{
			name:   "port zero",
			config: Config{Address: "127.0.0.1", Port: 0, FilePath: file},
			field:  "port",
		},
		{
			name:   "port too high",
			config: Config{Address: "127.0.0.1", Port: 70000, FilePath: file},
			field:  "port",
		},
		{
			name:   "missing file path",
			config: Config{Address: "127.0.0.1", Port: 4455},
			field:  "filePath",
		},
		{
			name:   "file does not exist",
			config: Config{Address: "127.0.0.1", Port: 4455, FilePath: filepath.Join(dir, "missing.wav")},
			field:  "filePath",
		},
		{
			name:   "file is a directory",
			config: Config{Address: "127.0.0.1", Port: 4455, FilePath: dir},
			field:  "filePath",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var invalid *InvalidConfigError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestConfigTarget(t *testing.T) {
	tests := []struct {
		config Config
		want   string
	}{
		{Config{Address: "172.17.3.255", Port: 4455}, "udp://172.17.3.255:4455"},
		{Config{Address: "ff02::1", Port: 5004}, "udp://[ff02::1]:5004"},
		{Config{Address: "[::1]", Port: 5004}, "udp://[::1]:5004"},
		{Config{Address: "speakers.local", Port: 9}, "udp://speakers.local:9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.config.Target())
	}
}

func TestEncoderArgs(t *testing.T) {
	config := Config{Address: "172.17.3.255", Port: 4455, FilePath: "/media/song.wav"}

	want := []string{
		"-re", "-stream_loop", "-1",
		"-i", "/media/song.wav",
		"-ac", "1",
		"-ar", "16000",
		"-acodec", "g722",
		"-f", "rtp",
		"udp://172.17.3.255:4455",
	}
	assert.Equal(t, want, config.EncoderArgs())

	withGlobal := config.EncoderArgs("-hide_banner", "-nostdin")
	assert.Equal(t, append([]string{"-hide_banner", "-nostdin"}, want...), withGlobal)
}
