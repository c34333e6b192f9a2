package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 13, cfg.ZoneCount)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxPhotoBytes)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, 30*time.Second, cfg.BlobTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ZONE_COUNT", "5")
	t.Setenv("MAX_PHOTO_BYTES", "1024")
	t.Setenv("NOTIFY_TIMEOUT", "2s")
	t.Setenv("NOTIFY_DISABLED", "1")

	cfg := Load()

	assert.Equal(t, 5, cfg.ZoneCount)
	assert.Equal(t, int64(1024), cfg.MaxPhotoBytes)
	assert.Equal(t, 2*time.Second, cfg.NotifyTimeout)
	assert.True(t, cfg.NotifyDisabled)
}

func TestParseZoneEmails(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[int]string
	}{
		{
			name:  "two entries",
			input: "1=alice@example.com,2=bob@example.com",
			want:  map[int]string{1: "alice@example.com", 2: "bob@example.com"},
		},
		{
			name:  "whitespace tolerated",
			input: " 3 = carol@example.com , 4=dave@example.com",
			want:  map[int]string{3: "carol@example.com", 4: "dave@example.com"},
		},
		{
			name:  "malformed entries skipped",
			input: "x=bad,5,=@,6=frank@example.com,0=zero@example.com",
			want:  map[int]string{6: "frank@example.com"},
		},
		{
			name:  "empty",
			input: "",
			want:  map[int]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseZoneEmails(tt.input))
		})
	}
}

func TestManagerEmailFallback(t *testing.T) {
	cfg := &Config{
		ZoneManagerEmails:   map[int]string{1: "one@example.com"},
		DefaultManagerEmail: "fallback@example.com",
	}

	assert.Equal(t, "one@example.com", cfg.ManagerEmail(1))
	assert.Equal(t, "fallback@example.com", cfg.ManagerEmail(9))
}
