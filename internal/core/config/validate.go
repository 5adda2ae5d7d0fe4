package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/colonyops/foreman/internal/core/hosting"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration
// including git executable lookup, directory accessibility, and branch
// template rendering. The configPath argument specifies the config file
// location to validate (empty string skips the config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateRepoDir(),
		c.validateBranchTemplate(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.RegistryOnly() {
		warnings = append(warnings, ValidationWarning{
			Category: "Hosting",
			Item:     "repo_dir",
			Message:  "no repository configured; promotions update the registry without touching a git clone",
		})
	}

	if c.Staleness.Threshold == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Staleness",
			Item:     "threshold",
			Message:  "staleness sweeps disabled; stuck branches will not be flagged",
		})
	}

	return warnings
}

// validateFileAccess checks config file, data directory, and git executable.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("git_path", c.GitPath, gitExecutableExists),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// gitExecutableExists validates that the git path is executable.
func gitExecutableExists(path string) error {
	if path == "" {
		return nil
	}
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("executable not found: %s", path)
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

// validateRepoDir checks that a configured repo_dir is an existing git work
// tree. Empty repo_dir is registry-only mode and always valid.
func (c *Config) validateRepoDir() error {
	return criterio.Run("repo_dir", c.RepoDir, func(path string) error {
		if path == "" {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot access: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("exists but is not a directory")
		}
		if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
			return fmt.Errorf("not a git work tree (no .git): %s", path)
		}
		return nil
	})
}

// validateBranchTemplate renders the template with placeholder values since
// output is discarded — only render errors matter.
func (c *Config) validateBranchTemplate() error {
	return criterio.Run("branch_template", c.BranchTemplate, func(tmpl string) error {
		_, err := hosting.BranchName(tmpl, role.Backend, "sample work item")
		return err
	})
}
