package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/foreman/internal/core/agentpool"
	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/lane"
)

// OrphanCheck finds cross-table drift: agent claims pointing at missing or
// finished branches, and lane queue entries whose branch is no longer
// awaiting promotion. With autofix enabled it releases the claims and
// removes the entries.
type OrphanCheck struct {
	branches branch.Store
	agents   agentpool.Store
	lanes    lane.Queue
	autofix  bool
}

// NewOrphanCheck creates a consistency check across branches, agents, and lanes.
func NewOrphanCheck(branches branch.Store, agents agentpool.Store, lanes lane.Queue, autofix bool) *OrphanCheck {
	return &OrphanCheck{
		branches: branches,
		agents:   agents,
		lanes:    lanes,
		autofix:  autofix,
	}
}

func (c *OrphanCheck) Name() string {
	return "Consistency"
}

func (c *OrphanCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}
	result.Items = append(result.Items, c.checkClaims(ctx)...)
	result.Items = append(result.Items, c.checkLanes(ctx)...)

	if len(result.Items) == 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "claims and queues",
			Status: StatusPass,
			Detail: "no orphaned records",
		})
	}

	return result
}

func (c *OrphanCheck) checkClaims(ctx context.Context) []CheckItem {
	agents, err := c.agents.List(ctx, agentpool.Filter{})
	if err != nil {
		return []CheckItem{{Label: "agent claims", Status: StatusFail, Detail: err.Error()}}
	}

	var items []CheckItem
	for _, a := range agents {
		if a.BranchID == "" {
			continue
		}

		var detail string
		b, err := c.branches.Get(ctx, a.BranchID)
		switch {
		case errors.Is(err, branch.ErrNotFound):
			detail = fmt.Sprintf("claims missing branch %s", a.BranchID)
		case err != nil:
			items = append(items, CheckItem{
				Label:  "agent " + a.ID,
				Status: StatusFail,
				Detail: err.Error(),
			})
			continue
		case b.State.Terminal():
			detail = fmt.Sprintf("claims %s branch %s", b.State, a.BranchID)
		default:
			continue
		}

		items = append(items, c.fixItem(
			"agent "+a.ID,
			detail,
			"claim released",
			func() error { return c.agents.ReleaseBranch(ctx, a.BranchID) },
		))
	}

	return items
}

func (c *OrphanCheck) checkLanes(ctx context.Context) []CheckItem {
	var items []CheckItem
	for _, target := range lane.Targets() {
		entries, err := c.lanes.List(ctx, target)
		if err != nil {
			items = append(items, CheckItem{
				Label:  target.String() + " lane",
				Status: StatusFail,
				Detail: err.Error(),
			})
			continue
		}

		for _, e := range entries {
			b, err := c.branches.Get(ctx, e.BranchID)
			if err != nil {
				items = append(items, CheckItem{
					Label:  target.String() + " lane",
					Status: StatusFail,
					Detail: err.Error(),
				})
				continue
			}
			if b.State == branch.StateQueuedForMerge || b.State == branch.StateMerging {
				continue
			}

			items = append(items, c.fixItem(
				target.String()+" lane",
				fmt.Sprintf("queued branch %s is %s", e.BranchID, b.State),
				"entry removed",
				func() error { return c.lanes.Remove(ctx, e.BranchID) },
			))
		}
	}

	return items
}

// fixItem reports one orphaned record, applying fix when autofix is on.
func (c *OrphanCheck) fixItem(label, detail, fixed string, fix func() error) CheckItem {
	if !c.autofix {
		return CheckItem{Label: label, Status: StatusWarn, Detail: detail, Fixable: true}
	}
	if err := fix(); err != nil {
		return CheckItem{Label: label, Status: StatusFail, Detail: fmt.Sprintf("%s: fix failed: %v", detail, err)}
	}
	return CheckItem{Label: label, Status: StatusPass, Detail: fmt.Sprintf("%s (%s)", detail, fixed)}
}
