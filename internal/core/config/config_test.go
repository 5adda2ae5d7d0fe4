package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/role"
)

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load("", tmpDir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.GitPath != "git" {
		t.Errorf("GitPath = %q, want %q", cfg.GitPath, "git")
	}
	if cfg.DataDir != tmpDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, tmpDir)
	}
	if cfg.DefaultTarget != lane.Integration {
		t.Errorf("DefaultTarget = %q, want %q", cfg.DefaultTarget, lane.Integration)
	}
	if cfg.ReworkLimit != 3 {
		t.Errorf("ReworkLimit = %d, want 3", cfg.ReworkLimit)
	}
	if got := cfg.LaneBranch(lane.Integration); got != "develop" {
		t.Errorf("LaneBranch(integration) = %q, want %q", got, "develop")
	}
	if got := cfg.LaneBranch(lane.Production); got != "main" {
		t.Errorf("LaneBranch(production) = %q, want %q", got, "main")
	}
	if rule := cfg.Policy[lane.Integration]; rule.ApproverRole != role.Reviewer || rule.MinApprovals != 1 {
		t.Errorf("Policy[integration] = %+v, want reviewer/1", rule)
	}
	if rule := cfg.Policy[lane.Production]; rule.ApproverRole != role.Owner || rule.MinApprovals != 1 {
		t.Errorf("Policy[production] = %+v, want owner/1", rule)
	}
	if cfg.Staleness.Threshold != 24*time.Hour {
		t.Errorf("Staleness.Threshold = %v, want 24h", cfg.Staleness.Threshold)
	}
	if cfg.Staleness.SweepInterval != time.Hour {
		t.Errorf("Staleness.SweepInterval = %v, want 1h", cfg.Staleness.SweepInterval)
	}
	if !cfg.RegistryOnly() {
		t.Error("RegistryOnly() = false with empty repo_dir, want true")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "foreman.yml")

	content := `
rework_limit: 5
default_target: production
lanes:
  production: { branch: release }
policy:
  integration: { approver_role: owner, min_approvals: 2 }
staleness:
  threshold: 2h
  sweep_interval: 10m
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath, tmpDir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ReworkLimit != 5 {
		t.Errorf("ReworkLimit = %d, want 5", cfg.ReworkLimit)
	}
	if cfg.DefaultTarget != lane.Production {
		t.Errorf("DefaultTarget = %q, want %q", cfg.DefaultTarget, lane.Production)
	}

	// Overridden lane takes the user value; the untouched lane keeps its default.
	if got := cfg.LaneBranch(lane.Production); got != "release" {
		t.Errorf("LaneBranch(production) = %q, want %q", got, "release")
	}
	if got := cfg.LaneBranch(lane.Integration); got != "develop" {
		t.Errorf("LaneBranch(integration) = %q, want %q", got, "develop")
	}

	// Same for policy rules.
	if rule := cfg.Policy[lane.Integration]; rule.ApproverRole != role.Owner || rule.MinApprovals != 2 {
		t.Errorf("Policy[integration] = %+v, want owner/2", rule)
	}
	if rule := cfg.Policy[lane.Production]; rule.ApproverRole != role.Owner || rule.MinApprovals != 1 {
		t.Errorf("Policy[production] = %+v, want owner/1", rule)
	}

	if cfg.Staleness.Threshold != 2*time.Hour {
		t.Errorf("Staleness.Threshold = %v, want 2h", cfg.Staleness.Threshold)
	}
	if cfg.Staleness.SweepInterval != 10*time.Minute {
		t.Errorf("Staleness.SweepInterval = %v, want 10m", cfg.Staleness.SweepInterval)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(filepath.Join(tmpDir, "does-not-exist.yml"), tmpDir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ReworkLimit != 3 {
		t.Errorf("ReworkLimit = %d, want default 3", cfg.ReworkLimit)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "foreman.yml")

	if err := os.WriteFile(configPath, []byte("lanes: [not: a: map"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath, tmpDir); err == nil {
		t.Error("Load() with invalid YAML did not error")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "negative rework limit",
			content: "rework_limit: -1",
			wantErr: "rework_limit",
		},
		{
			name:    "unknown default target",
			content: "default_target: staging",
			wantErr: "default_target",
		},
		{
			name:    "unknown policy role",
			content: "policy:\n  integration: { approver_role: manager, min_approvals: 1 }",
			wantErr: "unknown role",
		},
		{
			name:    "zero min approvals",
			content: "policy:\n  production: { approver_role: owner, min_approvals: 0 }",
			wantErr: "min_approvals",
		},
		{
			name:    "empty lane branch",
			content: "lanes:\n  integration: { branch: \"\" }",
			wantErr: "lanes.integration",
		},
		{
			name:    "unknown lane",
			content: "lanes:\n  staging: { branch: stage }",
			wantErr: "lanes.staging",
		},
		{
			name:    "policy for unknown target",
			content: "policy:\n  staging: { approver_role: owner, min_approvals: 1 }",
			wantErr: "unknown target",
		},
		{
			name:    "negative staleness threshold",
			content: "staleness:\n  threshold: -1h",
			wantErr: "staleness.threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "foreman.yml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := Load(configPath, tmpDir)
			if err == nil {
				t.Fatalf("Load() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateRequiresDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lanes = mergeLanes(defaultLanes, nil)

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "data directory") {
		t.Errorf("Validate() without DataDir = %v, want data directory error", err)
	}
}

func TestMergeLanes(t *testing.T) {
	tests := []struct {
		name string
		user map[lane.Target]LaneConfig
		want map[lane.Target]string
	}{
		{
			name: "defaults only",
			user: nil,
			want: map[lane.Target]string{lane.Integration: "develop", lane.Production: "main"},
		},
		{
			name: "user overrides one target",
			user: map[lane.Target]LaneConfig{lane.Production: {Branch: "release"}},
			want: map[lane.Target]string{lane.Integration: "develop", lane.Production: "release"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mergeLanes(defaultLanes, tt.user)
			for target, branch := range tt.want {
				if result[target].Branch != branch {
					t.Errorf("mergeLanes()[%s].Branch = %q, want %q", target, result[target].Branch, branch)
				}
			}
		})
	}
}
