package entra

import (
	"context"
	"fmt"
	"strings"

	"entrascan/internal/modules"
)

func init() {
	modules.Register(&servicePrincipals{})
}

type servicePrincipals struct{}

func (*servicePrincipals) ID() string       { return "service_principals" }
func (*servicePrincipals) Title() string    { return "Service Principals" }
func (*servicePrincipals) Provider() string { return "entra" }
func (*servicePrincipals) Description() string {
	return "Service principal inventory with credential load and privileged permission flags."
}

// highPrivilegeAppRoles maps well-known Microsoft Graph application
// permission IDs that grant broad directory control to their names. A
// service principal granted any of them is flagged HighPrivilege.
var highPrivilegeAppRoles = map[string]string{
	"19dbc75e-c2e2-444c-a770-ec69d8559fc7": "Directory.ReadWrite.All",
	"9e3f62cf-ca93-4989-b6ce-bf83c28f9fe8": "RoleManagement.ReadWrite.Directory",
	"06b708a9-e830-4db3-a914-8e69da51d44f": "AppRoleAssignment.ReadWrite.All",
	"1bfefb4e-e0b5-418b-a88f-73c46d2cc8e9": "Application.ReadWrite.All",
	"741f803b-c850-494e-b5df-cde7c675a1ca": "User.ReadWrite.All",
	"e2a3a72e-5f79-4c64-b1b1-878b674786c9": "Mail.ReadWrite",
}

func (m *servicePrincipals) Run(ctx context.Context, api modules.GraphAPI) (map[string]any, error) {
	sps, err := api.GetAll(ctx, "/servicePrincipals?$select=id,appId,displayName,accountEnabled,servicePrincipalType,passwordCredentials,keyCredentials,appRoles,oauth2PermissionScopes")
	if err != nil {
		return nil, fmt.Errorf("service principals: %w", err)
	}

	var highPriv, disabled int
	rows := make([]map[string]any, 0, len(sps))
	for _, sp := range sps {
		// Third-party and workload principals only; managed identities
		// carry no credentials of their own.
		creds := len(list(sp, "passwordCredentials")) + len(list(sp, "keyCredentials"))
		enabled := boolean(sp, "accountEnabled")
		high := m.isHighPrivilege(ctx, api, sp)

		if high {
			highPriv++
		}
		if !enabled {
			disabled++
		}

		rows = append(rows, map[string]any{
			"DisplayName":     str(sp, "displayName"),
			"AppId":           str(sp, "appId"),
			"Type":            str(sp, "servicePrincipalType"),
			"AccountEnabled":  enabled,
			"CredentialCount": creds,
			"HighPrivilege":   high,
		})
	}

	return map[string]any{
		"service_principals": rows,
		"summary": map[string]any{
			"Total Service Principals": len(sps),
			"High Privilege":           highPriv,
			"Disabled":                 disabled,
		},
	}, nil
}

// isHighPrivilege checks granted app roles against the well-known
// high-privilege permission IDs. Role grants live on a per-principal
// endpoint; a fetch failure leaves the flag false rather than failing
// the module.
func (m *servicePrincipals) isHighPrivilege(ctx context.Context, api modules.GraphAPI, sp map[string]any) bool {
	id := str(sp, "id")
	if id == "" {
		return false
	}
	grants, err := api.GetAll(ctx, "/servicePrincipals/"+id+"/appRoleAssignments")
	if err != nil {
		return false
	}
	for _, g := range grants {
		if _, ok := highPrivilegeAppRoles[strings.ToLower(str(g, "appRoleId"))]; ok {
			return true
		}
	}
	return false
}
