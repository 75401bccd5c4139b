package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "equals form",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "order preserved",
			args:         []string{"-f", "/srv/files", "-x", "1", "-d", "dsn"},
			allowedFlags: []string{"-d", "-f"},
			want:         []string{"-f", "/srv/files", "-d", "dsn"},
		},
		{
			name:         "value that looks like a flag is not consumed",
			args:         []string{"-d", "-a", ":8080"},
			allowedFlags: []string{"-d"},
			want:         []string{"-d"},
		},
		{
			name:         "nothing allowed",
			args:         []string{"-x", "1", "positional"},
			allowedFlags: nil,
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestPositional(t *testing.T) {
	args := []string{"-d", "postgres://x", "alice", "-v", "-c=cfg.json", "extra"}
	assert.Equal(t, []string{"alice", "extra"}, Positional(args, []string{"-d"}))
}

func TestJsonConfigFlags(t *testing.T) {
	assert.Equal(t, "a.json", JsonConfigFlags([]string{"-a", ":80", "-c", "a.json"}))
	assert.Equal(t, "b.json", JsonConfigFlags([]string{"-config=b.json"}))
	assert.Equal(t, "", JsonConfigFlags([]string{"-a", ":80"}))
}
