package procurement

import (
	"github.com/sacsol/sacsol-api/internal/auth"
	"github.com/sacsol/sacsol-api/internal/shared"
)

// Policy decides who may act on an order. Status guards stay on the
// aggregate; the policy only answers capability questions.
type Policy interface {
	CanEdit(id *shared.Identity, o *LPO) bool
	CanSubmit(id *shared.Identity, o *LPO) bool
	CanApprove(id *shared.Identity, o *LPO) bool
	CanCancel(id *shared.Identity, o *LPO) bool
	CanReceive(id *shared.Identity, o *LPO) bool
}

// RolePolicy is the default capability mapping. Staff create, edit and
// receive; managers approve and cancel; owners can do everything.
type RolePolicy struct{}

// NewRolePolicy returns the default policy.
func NewRolePolicy() RolePolicy {
	return RolePolicy{}
}

func (RolePolicy) CanEdit(id *shared.Identity, o *LPO) bool {
	if id == nil {
		return false
	}
	if id.IsSuperuser || id.HasRole(auth.RoleManager) {
		return true
	}
	// Staff may only touch orders they created.
	return id.HasRole(auth.RoleStaff) && o.CreatedBy == id.UserID
}

func (p RolePolicy) CanSubmit(id *shared.Identity, o *LPO) bool {
	return p.CanEdit(id, o)
}

func (RolePolicy) CanApprove(id *shared.Identity, o *LPO) bool {
	return id != nil && id.HasRole(auth.RoleManager)
}

func (RolePolicy) CanCancel(id *shared.Identity, o *LPO) bool {
	return id != nil && id.HasRole(auth.RoleManager)
}

func (RolePolicy) CanReceive(id *shared.Identity, o *LPO) bool {
	return id != nil && (id.HasRole(auth.RoleStaff) || id.HasRole(auth.RoleManager))
}

var _ Policy = RolePolicy{}
