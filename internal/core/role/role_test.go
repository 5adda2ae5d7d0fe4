package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		want    Role
		wantErr bool
	}{
		{name: "backend", tag: "backend", want: Backend},
		{name: "uppercase is normalized", tag: "Frontend", want: Frontend},
		{name: "surrounding whitespace trimmed", tag: "  devops ", want: DevOps},
		{name: "owner", tag: "owner", want: Owner},
		{name: "unknown tag", tag: "security", wantErr: true},
		{name: "empty tag", tag: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.tag)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAll_AreValid(t *testing.T) {
	for _, r := range All() {
		assert.True(t, r.Valid(), "role %q should be valid", r)
	}
	assert.False(t, Role("intern").Valid())
}
