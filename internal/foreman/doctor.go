package foreman

import (
	"context"

	"github.com/colonyops/foreman/internal/core/agentpool"
	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/doctor"
	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/data/db"
)

// DoctorService runs health checks on the foreman setup.
type DoctorService struct {
	branches branch.Store
	agents   agentpool.Store
	lanes    lane.Queue
	database *db.DB
	config   *config.Config
}

// NewDoctorService creates a new DoctorService.
func NewDoctorService(branches branch.Store, agents agentpool.Store, lanes lane.Queue, database *db.DB, cfg *config.Config) *DoctorService {
	return &DoctorService{
		branches: branches,
		agents:   agents,
		lanes:    lanes,
		database: database,
		config:   cfg,
	}
}

// RunChecks executes all doctor checks and returns results.
func (d *DoctorService) RunChecks(ctx context.Context, configPath string, autofix bool) []doctor.Result {
	checks := []doctor.Check{
		doctor.NewToolsCheck(d.config.GitPath),
		doctor.NewConfigCheck(d.config, configPath),
		doctor.NewRepoCheck(d.config.RepoDir),
		doctor.NewDatabaseCheck(d.database.Conn()),
		doctor.NewOrphanCheck(d.branches, d.agents, d.lanes, autofix),
	}
	return doctor.RunAll(ctx, checks)
}
