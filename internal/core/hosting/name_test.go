package hosting

import (
	"testing"

	"github.com/colonyops/foreman/internal/core/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchName(t *testing.T) {
	tests := []struct {
		name     string
		template string
		role     role.Role
		title    string
		want     string
		wantErr  bool
	}{
		{
			name:  "default template",
			role:  role.Backend,
			title: "Fix cart totals",
			want:  "feature/backend/fix-cart-totals",
		},
		{
			name:  "title is sanitized",
			role:  role.Frontend,
			title: "Checkout: validate ZIP (US only)",
			want:  "feature/frontend/checkout-validate-zip-us-only",
		},
		{
			name:  "empty slug falls back",
			role:  role.DevOps,
			title: "!!!",
			want:  "feature/devops/work",
		},
		{
			name:     "custom template",
			template: "agents/{{ .Slug }}-{{ .Role }}",
			role:     role.Designer,
			title:    "New palette",
			want:     "agents/new-palette-designer",
		},
		{
			name:     "template with undefined key",
			template: "feature/{{ .Nope }}",
			role:     role.Backend,
			title:    "anything",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BranchName(tt.template, tt.role, tt.title)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
