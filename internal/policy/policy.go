// Package policy is the authorization checkpoint for owner/admin
// operations: a registry of per-resource policies checked against the
// requesting user id.
package policy

import (
	"context"
	"errors"
)

type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionRestock Action = "restock"
	ActionApprove Action = "approve"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoPolicyDefined = errors.New("no policy defined for resource")
)

// Policy decides whether user may perform action on resource. For
// create/list checks resource may be nil.
type Policy interface {
	Can(ctx context.Context, userID uint, action Action, resource any) bool
}

// Gate registers policies by resource type name.
type Gate struct {
	policies map[string]Policy
}

func NewGate() *Gate { return &Gate{policies: make(map[string]Policy)} }

func (g *Gate) Register(resourceType string, p Policy) {
	g.policies[resourceType] = p
}

// Authorize returns nil when user may perform action on resource.
func (g *Gate) Authorize(ctx context.Context, userID uint, action Action, resourceType string, resource any) error {
	if userID == 0 {
		return ErrUnauthorized
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return ErrNoPolicyDefined
	}
	if !p.Can(ctx, userID, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

func (g *Gate) Can(ctx context.Context, userID uint, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, userID, action, resourceType, resource) == nil
}
