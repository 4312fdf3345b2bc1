package entra

import (
	"context"
	"fmt"

	"entrascan/internal/modules"
)

func init() {
	modules.Register(&groupAudit{})
}

type groupAudit struct{}

func (*groupAudit) ID() string       { return "group_audit" }
func (*groupAudit) Title() string    { return "Group Audit" }
func (*groupAudit) Provider() string { return "entra" }
func (*groupAudit) Description() string {
	return "Group visibility, role-assignability and dynamic membership review."
}

func (m *groupAudit) Run(ctx context.Context, api modules.GraphAPI) (map[string]any, error) {
	groups, err := api.GetAll(ctx, "/groups?$select=id,displayName,visibility,isAssignableToRole,membershipRule,securityEnabled,mailEnabled")
	if err != nil {
		return nil, fmt.Errorf("groups: %w", err)
	}

	var public, roleAssignable, dynamic int
	rows := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		visibility := str(g, "visibility")
		assignable := boolean(g, "isAssignableToRole")
		rule := str(g, "membershipRule")

		if visibility == "Public" {
			public++
		}
		if assignable {
			roleAssignable++
		}
		if rule != "" {
			dynamic++
		}

		rows = append(rows, map[string]any{
			"DisplayName":        str(g, "displayName"),
			"Visibility":         visibility,
			"IsAssignableToRole": assignable,
			"MembershipRule":     rule,
			"SecurityEnabled":    boolean(g, "securityEnabled"),
			"MailEnabled":        boolean(g, "mailEnabled"),
		})
	}

	return map[string]any{
		"groups": rows,
		"summary": map[string]any{
			"Total Groups":           len(groups),
			"Public Groups":          public,
			"Role-Assignable Groups": roleAssignable,
			"Dynamic Groups":         dynamic,
		},
	}, nil
}
