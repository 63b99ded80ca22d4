package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPublicURL(t *testing.T) {
	got := buildPublicURL("https://s3.local", "audio", "default/2026-10-18/a b.wav")

	assert.Equal(t, "https://s3.local/audio/default%2F2026-10-18%2Fa%20b.wav", got)
}
