package geoip

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewServiceMissingFile(t *testing.T) {
	_, err := NewService(filepath.Join(t.TempDir(), "missing.mmdb"))
	assert.Error(t, err)
}

func TestNilServiceClose(t *testing.T) {
	var s *Service
	assert.NoError(t, s.Close())
}
