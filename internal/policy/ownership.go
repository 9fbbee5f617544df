package policy

import "context"

// Ownable is implemented by resources that belong to one user.
type Ownable interface {
	OwnerUserID() uint
}

// OwnershipPolicy allows an action only to the resource's owner.
// Create/list checks (nil resource) pass; the route-level role check
// already decided who may reach them.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy { return &OwnershipPolicy{} }

func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		// Resources without an ownership notion are denied by default.
		return false
	}
	return ownable.OwnerUserID() == userID
}

// AdminBypassPolicy lets admins through unconditionally and defers to
// the inner policy for everyone else.
type AdminBypassPolicy struct {
	inner   Policy
	isAdmin func(ctx context.Context, userID uint) bool
}

func NewAdminBypassPolicy(inner Policy, isAdmin func(ctx context.Context, userID uint) bool) *AdminBypassPolicy {
	return &AdminBypassPolicy{inner: inner, isAdmin: isAdmin}
}

func (p *AdminBypassPolicy) Can(ctx context.Context, userID uint, action Action, resource any) bool {
	if p.isAdmin(ctx, userID) {
		return true
	}
	return p.inner.Can(ctx, userID, action, resource)
}

// AdminOnlyPolicy gates actions reserved to administrators, like store
// approval.
type AdminOnlyPolicy struct {
	isAdmin func(ctx context.Context, userID uint) bool
}

func NewAdminOnlyPolicy(isAdmin func(ctx context.Context, userID uint) bool) *AdminOnlyPolicy {
	return &AdminOnlyPolicy{isAdmin: isAdmin}
}

func (p *AdminOnlyPolicy) Can(ctx context.Context, userID uint, _ Action, _ any) bool {
	return p.isAdmin(ctx, userID)
}
