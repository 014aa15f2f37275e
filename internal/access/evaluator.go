// Package access centralizes the authorization policy applied to every secret
// operation. All role checks live here so policy changes happen in one place
// and can be tested independently of the lifecycle engine.
package access

import (
	"github.com/allisson/lockbox/internal/identity"
)

// Action identifies the operation being authorized.
type Action string

// Actions recognized by the policy.
const (
	ActionReveal       Action = "reveal"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionReadMetadata Action = "read_metadata"
)

// DenyReason distinguishes a denial that hides resource existence from one
// that admits the resource exists but refuses the action.
type DenyReason string

const (
	// DenyForbidden means the resource exists but the action is refused.
	DenyForbidden DenyReason = "forbidden"
	// DenyNotFound means the denial must be indistinguishable from a
	// missing resource.
	DenyNotFound DenyReason = "not_found"
)

// Decision is the result of an access evaluation. Decisions are ephemeral and
// never persisted.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Allow is the affirmative decision.
var Allow = Decision{Allowed: true}

// Deny returns a negative decision with the given reason.
func Deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Evaluator is a stateless authorization policy over
// (action, resource owner, caller identity).
type Evaluator struct {
	// hideExistence makes owner-check denials report as not found for
	// non-privileged callers, so non-owners cannot probe for secret IDs.
	hideExistence bool
}

// NewEvaluator creates an evaluator. When hideExistence is true, denials for
// non-privileged non-owners are not-found-shaped instead of forbidden.
func NewEvaluator(hideExistence bool) *Evaluator {
	return &Evaluator{hideExistence: hideExistence}
}

// Evaluate decides whether ident may perform action on a resource owned by
// resourceOwnerID. The default policy: owners may do anything with their own
// secrets; admin and auditor roles may read metadata across owners but may
// not reveal, update or delete another owner's secret.
func (e *Evaluator) Evaluate(action Action, resourceOwnerID string, ident identity.Identity) Decision {
	if ident.SubjectID != "" && ident.SubjectID == resourceOwnerID {
		return Allow
	}

	if ident.IsPrivileged() {
		if action == ActionReadMetadata {
			return Allow
		}
		// Privileged roles see that the resource exists but may not act on it.
		return Deny(DenyForbidden)
	}

	if e.hideExistence {
		return Deny(DenyNotFound)
	}
	return Deny(DenyForbidden)
}
