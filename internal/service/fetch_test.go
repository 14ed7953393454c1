package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckContentURL(t *testing.T) {
	allow := []string{"cdn.example.com"}
	tests := []struct {
		name  string
		url   string
		hosts []string
		ok    bool
	}{
		{"https any host", "https://slides.example.org/a.png", nil, true},
		{"http rejected", "http://slides.example.org/a.png", nil, false},
		{"file rejected", "file:///etc/passwd", nil, false},
		{"credentials rejected", "https://user:pw@cdn.example.com/a.png", nil, false},
		{"allowed host", "https://cdn.example.com/a.png", allow, true},
		{"allowed subdomain", "https://eu.cdn.example.com/a.png", allow, true},
		{"lookalike host", "https://evilcdn.example.com/a.png", allow, false},
		{"other host", "https://slides.example.org/a.png", allow, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkContentURL(tt.url, tt.hosts)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errContentURL)
			}
		})
	}
}

func TestPublicAddressOnly(t *testing.T) {
	for _, addr := range []string{
		"127.0.0.1:443",
		"[::1]:443",
		"10.1.2.3:443",
		"192.168.0.10:443",
		"172.16.5.4:443",
		"169.254.169.254:80",
		"0.0.0.0:443",
		"[fe80::1]:443",
	} {
		assert.ErrorIs(t, publicAddressOnly("tcp", addr, nil), errPrivateAddress, addr)
	}

	assert.NoError(t, publicAddressOnly("tcp", "93.184.216.34:443", nil))
	assert.NoError(t, publicAddressOnly("tcp", "[2606:2800:220:1:248:1893:25c8:1946]:443", nil))
}
