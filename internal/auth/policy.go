package auth

import (
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Role-based route policy. keyMatch2 understands :param segments and
// trailing wildcards, regexMatch the method alternation.
const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

var defaultPolicies = [][]string{
	{string(domain.RoleUser), "/api/me", "^GET$"},
	{string(domain.RoleUser), "/api/auth/logout", "^POST$"},
	{string(domain.RoleUser), "/api/tickets", "^(GET|POST)$"},
	{string(domain.RoleUser), "/api/tickets/:id", "^(GET|PATCH|DELETE)$"},
	{string(domain.RoleUser), "/api/tickets/:id/history", "^GET$"},
	{string(domain.RoleUser), "/api/markdown/preview", "^POST$"},
	{string(domain.RoleUser), "/tickets", "^(GET|POST)$"},
	{string(domain.RoleUser), "/tickets/:id", "^GET$"},
	{string(domain.RoleUser), "/tickets/:id/close", "^POST$"},
	{string(domain.RoleAdmin), "/api/admin/*", "^(GET|PATCH)$"},
	{string(domain.RoleAdmin), "/admin/*", "^(GET|POST)$"},
}

// NewPolicyEnforcer builds the in-memory RBAC enforcer. ADMIN inherits every
// USER permission.
func NewPolicyEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if _, err := enforcer.AddPolicies(defaultPolicies); err != nil {
		return nil, err
	}
	if _, err := enforcer.AddGroupingPolicy(string(domain.RoleAdmin), string(domain.RoleUser)); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// PolicyPath is the request path as the policy sees it. The router is not
// strict, so "/api/tickets/" reaches the same handler as "/api/tickets".
func PolicyPath(c *fiber.Ctx) string {
	path := c.Path()
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

// Authorize checks the principal's role against the route policy.
func Authorize(enforcer *casbin.Enforcer, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		allowed, err := enforcer.Enforce(string(principal.User.Role), PolicyPath(c), c.Method())
		if err != nil {
			logger.Error("policy check failed", zap.Error(err))
			return apperrors.NewInternalError(err)
		}
		if !allowed {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
