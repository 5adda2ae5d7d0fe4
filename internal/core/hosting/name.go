package hosting

import (
	"fmt"
	"strings"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/colonyops/foreman/pkg/tmpl"
)

// DefaultBranchTemplate names hosted feature branches.
const DefaultBranchTemplate = "feature/{{ .Role }}/{{ .Slug }}"

// BranchName renders the hosted branch name for a work item. The template
// receives Role and Slug; the slug is derived from the title and falls back
// to "work" when nothing survives sanitization. Names exist only at this
// boundary and are never parsed back into lifecycle state.
func BranchName(template string, r role.Role, title string) (string, error) {
	if template == "" {
		template = DefaultBranchTemplate
	}

	slug := branch.Slugify(title)
	if slug == "" {
		slug = "work"
	}

	name, err := tmpl.Render(template, map[string]string{
		"Role": r.String(),
		"Slug": slug,
	})
	if err != nil {
		return "", fmt.Errorf("render branch template: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("branch template %q produced an empty name", template)
	}
	return name, nil
}
