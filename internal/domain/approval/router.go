// Package approval holds the pure routing rules of the approval chain.
package approval

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/domain/entity"
	"github.com/garyjia/procurement-engine/internal/domain/hierarchy"
	"github.com/garyjia/procurement-engine/internal/domain/workflow"
)

// Resolve picks the level configuration for an amount among one company's configs.
//
// Non-positive amounts go straight to the level 1 fixed configuration. Otherwise the
// matching amount-based config with the highest level number wins, falling back to
// the level 1 fixed configuration when nothing matches.
func Resolve(configs []*entity.ApprovalLevelConfig, amount decimal.Decimal, companyID int64) (*entity.ApprovalLevelConfig, error) {
	if amount.IsPositive() {
		var best *entity.ApprovalLevelConfig
		for _, c := range configs {
			if c.CompanyID != companyID || !c.Matches(amount) {
				continue
			}
			if best == nil || c.LevelNumber > best.LevelNumber {
				best = c
			}
		}
		if best != nil {
			return best, nil
		}
	}

	if fallback := FixedLevelOne(configs, companyID); fallback != nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("%w: company %d", entity.ErrConfigurationMissing, companyID)
}

// FixedLevelOne returns the active level 1 fixed configuration of a company
func FixedLevelOne(configs []*entity.ApprovalLevelConfig, companyID int64) *entity.ApprovalLevelConfig {
	for _, c := range configs {
		if c.CompanyID == companyID && c.Active && c.LevelNumber == 1 && c.ApprovalType == entity.ApprovalTypeFixed {
			return c
		}
	}
	return nil
}

// ForLevel returns the active configuration with the given level number
func ForLevel(configs []*entity.ApprovalLevelConfig, companyID int64, level int) *entity.ApprovalLevelConfig {
	var found *entity.ApprovalLevelConfig
	for _, c := range configs {
		if c.CompanyID != companyID || !c.Active || c.LevelNumber != level {
			continue
		}
		// Amount-based levels take precedence over a fixed level with the same number
		if found == nil || c.ApprovalType == entity.ApprovalTypeAmountBased {
			found = c
		}
	}
	return found
}

// MayApprove reports whether an actor holding groups may sign off a level.
// Levels without approver groups are open to everyone.
func MayApprove(level *entity.ApprovalLevelConfig, actorGroups []int64, groups *hierarchy.Tree) bool {
	if level == nil || !level.HasApproverGroups() {
		return true
	}
	if groups == nil {
		groups = hierarchy.NewTree(nil)
	}
	return groups.Intersects(actorGroups, level.ApproverGroupIDs)
}

// CanApprove is the read-only check used before offering the approve action
func CanApprove(req *entity.ApprovalRequest, level *entity.ApprovalLevelConfig, actorGroups []int64, groups *hierarchy.Tree) bool {
	if req.State != workflow.StateSubmitted {
		return false
	}
	return MayApprove(level, actorGroups, groups)
}

// AdvanceLevel applies one approval to the counters and reports whether the chain is complete.
// The current level never passes the required level.
func AdvanceLevel(req *entity.ApprovalRequest) bool {
	req.CurrentLevel++
	if req.CurrentLevel > req.RequiredLevel {
		req.CurrentLevel = req.RequiredLevel
		return true
	}
	return false
}

// IsFinalLevel reports whether the next approval completes the chain
func IsFinalLevel(req *entity.ApprovalRequest) bool {
	return req.CurrentLevel+1 > req.RequiredLevel
}
