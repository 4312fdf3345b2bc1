package entra

import (
	"context"
	"fmt"
	"slices"

	"entrascan/internal/modules"
)

func init() {
	modules.Register(&caPolicyAudit{})
}

type caPolicyAudit struct{}

func (*caPolicyAudit) ID() string       { return "ca_policy_audit" }
func (*caPolicyAudit) Title() string    { return "Conditional Access Policy Audit" }
func (*caPolicyAudit) Provider() string { return "entra" }
func (*caPolicyAudit) Description() string {
	return "Conditional Access policy inventory with legacy auth and admin MFA coverage."
}

func (m *caPolicyAudit) Run(ctx context.Context, api modules.GraphAPI) (map[string]any, error) {
	policies, err := api.GetAll(ctx, "/identity/conditionalAccess/policies")
	if err != nil {
		return nil, fmt.Errorf("conditional access policies: %w", err)
	}

	var enabled, reportOnly int
	legacyBlocked := false
	adminMFA := false
	rows := make([]map[string]any, 0, len(policies))
	for _, p := range policies {
		state := str(p, "state")
		switch state {
		case "enabled":
			enabled++
		case "enabledForReportingButNotEnforced":
			reportOnly++
		}

		conditions := object(p, "conditions")
		grant := object(p, "grantControls")
		requiresMFA := hasControl(grant, "mfa")
		blocksLegacy := blocksLegacyAuth(conditions, grant)
		coversAdmins := includesAdminRoles(conditions)

		if state == "enabled" && blocksLegacy {
			legacyBlocked = true
		}
		if state == "enabled" && requiresMFA && coversAdmins {
			adminMFA = true
		}

		rows = append(rows, map[string]any{
			"DisplayName":      str(p, "displayName"),
			"State":            state,
			"RequiresMFA":      requiresMFA,
			"BlocksLegacyAuth": blocksLegacy,
			"CoversAdminRoles": coversAdmins,
		})
	}

	return map[string]any{
		"policies": rows,
		"summary": map[string]any{
			"Total Policies":          len(policies),
			"Enabled Policies":        enabled,
			"Report-Only Policies":    reportOnly,
			"Legacy Auth Blocked":     legacyBlocked,
			"MFA Required For Admins": adminMFA,
		},
	}, nil
}

func hasControl(grant map[string]any, control string) bool {
	raw, _ := grant["builtInControls"].([]any)
	for _, c := range raw {
		if s, ok := c.(string); ok && s == control {
			return true
		}
	}
	return false
}

// blocksLegacyAuth recognizes the canonical pattern: a block grant
// targeting the legacy client app types.
func blocksLegacyAuth(conditions, grant map[string]any) bool {
	if !hasControl(grant, "block") {
		return false
	}
	types, _ := conditions["clientAppTypes"].([]any)
	legacy := false
	for _, t := range types {
		if s, ok := t.(string); ok && (s == "exchangeActiveSync" || s == "other") {
			legacy = true
		}
	}
	return legacy
}

// adminRoleTemplateIDs are the directory role templates a baseline
// admin MFA policy is expected to target. Global Administrator alone
// is accepted.
var adminRoleTemplateIDs = []string{
	"62e90394-69f5-4237-9190-012177145e10", // Global Administrator
	"194ae4cb-b126-40b2-bd5b-6091b380977d", // Security Administrator
	"f28a1f50-f6e7-4571-818b-6a12f2af6b6c", // SharePoint Administrator
	"29232cdf-9323-42fd-ade2-1d097af3e4de", // Exchange Administrator
}

func includesAdminRoles(conditions map[string]any) bool {
	users := object(conditions, "users")
	roles, _ := users["includeRoles"].([]any)
	for _, r := range roles {
		if s, ok := r.(string); ok && slices.Contains(adminRoleTemplateIDs, s) {
			return true
		}
	}
	// Policies scoped to all users cover admins too.
	includeUsers, _ := users["includeUsers"].([]any)
	for _, u := range includeUsers {
		if s, ok := u.(string); ok && s == "All" {
			return true
		}
	}
	return false
}
