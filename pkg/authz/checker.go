package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/contextkeys"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/orgs"
)

// MembershipSource is the slice of the organization store the checker
// needs. A missing membership is reported as orgs.ErrNotFound.
type MembershipSource interface {
	FindMembership(ctx context.Context, organizationID, userID string) (*orgs.Membership, error)
}

// Checker evaluates authorization decisions against the static policy
// tables and the membership store. Decisions are computed freshly per
// request; nothing is cached across requests.
type Checker struct {
	memberships MembershipSource
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// NewChecker creates a Checker. metrics may be nil.
func NewChecker(memberships MembershipSource, logger *observability.Logger, metrics *observability.Metrics) *Checker {
	return &Checker{
		memberships: memberships,
		logger:      logger,
		metrics:     metrics,
	}
}

// resolveMembership fetches the membership row for (organization,
// principal). Returns ErrNotAMember for an absent row; store failures
// are wrapped and propagated for the caller to surface as internal.
func (c *Checker) resolveMembership(ctx context.Context, organizationID, userID string) (*orgs.Membership, error) {
	m, err := c.memberships.FindMembership(ctx, organizationID, userID)
	if errors.Is(err, orgs.ErrNotFound) {
		c.countLookup("miss")
		return nil, ErrNotAMember
	}
	if err != nil {
		c.countLookup("error")
		return nil, fmt.Errorf("membership lookup failed: %w", err)
	}
	c.countLookup("hit")
	return m, nil
}

// OrganizationRole resolves the caller's role in an organization,
// consulting the per-request context cache before the store. The second
// return reports whether the role came from the cache.
func (c *Checker) OrganizationRole(ctx context.Context, organizationID, userID string) (auth.OrgRole, bool, error) {
	if cachedOrg := contextkeys.GetOrganizationID(ctx); cachedOrg == organizationID {
		if role, ok := ctx.Value(contextkeys.OrganizationRoleKey).(auth.OrgRole); ok {
			return role, true, nil
		}
	}
	m, err := c.resolveMembership(ctx, organizationID, userID)
	if err != nil {
		return "", false, err
	}
	return m.Role, false, nil
}

// Can reports whether the current principal's app-level role grants
// action on resource. Any resolution failure, including a missing
// principal, yields false. Meant for soft checks inside handler bodies;
// guards are the hard gate.
func (c *Checker) Can(ctx context.Context, resource Resource, action Action) bool {
	authCtx := auth.FromContext(ctx)
	if !authCtx.Authenticated() {
		return false
	}
	return HasPermission(authCtx.Principal.SystemRole, resource, action)
}

// CanInOrganization reports whether the current principal may perform
// action on resource within an organization. organizationID may be
// empty, in which case the id already resolved on the context is used.
// System admins bypass the membership check. Fails closed: any error is
// logged and reported as false.
func (c *Checker) CanInOrganization(ctx context.Context, resource Resource, action Action, organizationID string) bool {
	authCtx := auth.FromContext(ctx)
	if !authCtx.Authenticated() {
		return false
	}
	if authCtx.Principal.IsSystemAdmin(time.Now()) {
		return true
	}

	if organizationID == "" {
		organizationID = contextkeys.GetOrganizationID(ctx)
	}
	if organizationID == "" {
		return false
	}

	role, _, err := c.OrganizationRole(ctx, organizationID, authCtx.Principal.ID)
	if err != nil {
		if !errors.Is(err, ErrNotAMember) {
			c.logger.WithError(err).WithField("organization_id", organizationID).
				Warn("organization permission check failed, denying")
		}
		return false
	}
	return HasOrganizationPermission(role, resource, action)
}

func (c *Checker) countLookup(result string) {
	if c.metrics != nil {
		c.metrics.MembershipLookupsTotal.WithLabelValues(result).Inc()
	}
}
