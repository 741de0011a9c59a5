package complaint

import (
	"time"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/models"
)

// CheckTransition decides whether actor may move c to the requested status.
//
// Staff move complaints forward freely (skipping states is fine); moving backwards,
// e.g. re-opening a resolved complaint, needs override. A student can only mark their
// own open complaint Resolved. Setting the current status again is rejected so every
// accepted update produces exactly one history entry.
func CheckTransition(actor *models.User, c *models.Complaint, to models.Status, override bool) error {
	if actor == nil {
		return apperr.Authentication("caller identity could not be resolved")
	}
	if !to.Valid() {
		return apperr.Validation("unknown status", "status")
	}
	from := c.Status
	if from == to {
		return apperr.Validation("complaint is already "+string(to), "status")
	}

	if actor.IsStaff() {
		if to.Rank() < from.Rank() && !override {
			return apperr.Validation("moving a complaint from "+string(from)+" back to "+string(to)+" requires override", "override")
		}
		return nil
	}

	if actor.IsStudent() && c.SubmitterID == actor.ID {
		if to == models.StatusResolved && (from == models.StatusSubmitted || from == models.StatusInProgress) {
			return nil
		}
		return apperr.Authorization("students can only mark their own open complaints as resolved")
	}
	return apperr.Authorization("only staff can change the status of this complaint")
}

// ApplyTransition sets the status and stamps resolvedAt on the first arrival at Resolved.
// resolvedAt survives later moves to Closed or a re-open.
func ApplyTransition(c *models.Complaint, to models.Status, at time.Time) {
	c.Status = to
	c.UpdatedAt = at
	if to == models.StatusResolved && c.ResolvedAt == nil {
		resolved := at
		c.ResolvedAt = &resolved
	}
}
