package entra

import (
	"context"
	"fmt"

	"entrascan/internal/modules"
)

func init() {
	modules.Register(&tenantOverview{})
}

type tenantOverview struct{}

func (*tenantOverview) ID() string       { return "tenant_overview" }
func (*tenantOverview) Title() string    { return "Tenant Overview" }
func (*tenantOverview) Provider() string { return "entra" }
func (*tenantOverview) Description() string {
	return "Organization profile, domain inventory and baseline tenant security posture."
}

func (m *tenantOverview) Run(ctx context.Context, api modules.GraphAPI) (map[string]any, error) {
	orgs, err := api.GetAll(ctx, "/organization")
	if err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}
	org := map[string]any{}
	if len(orgs) > 0 {
		org = orgs[0]
	}

	domains, err := api.GetAll(ctx, "/domains")
	if err != nil {
		return nil, fmt.Errorf("domains: %w", err)
	}

	verified, federated := 0, 0
	domainRows := make([]map[string]any, 0, len(domains))
	for _, d := range domains {
		isVerified := boolean(d, "isVerified")
		isFederated := str(d, "authenticationType") == "Federated"
		if isVerified {
			verified++
		}
		if isFederated {
			federated++
		}
		domainRows = append(domainRows, map[string]any{
			"Name":       str(d, "id"),
			"IsVerified": isVerified,
			"IsDefault":  boolean(d, "isDefault"),
			"AuthType":   str(d, "authenticationType"),
		})
	}

	skuRows := []map[string]any{}
	if skus, err := api.GetAll(ctx, "/subscribedSkus"); err == nil {
		for _, s := range skus {
			prepaid := object(s, "prepaidUnits")
			skuRows = append(skuRows, map[string]any{
				"SkuPartNumber": str(s, "skuPartNumber"),
				"ConsumedUnits": num(s, "consumedUnits"),
				"EnabledUnits":  num(prepaid, "enabled"),
			})
		}
	}

	// Security defaults and the authorization policy need separate
	// policy endpoints; a 403 on either is tolerated so the module
	// still reports domains for tenants with narrow consent.
	securityDefaults := false
	if pol, err := api.Get(ctx, "/policies/identitySecurityDefaultsEnforcementPolicy"); err == nil {
		securityDefaults = boolean(pol, "isEnabled")
	}
	authzPolicy := map[string]any{}
	if pol, err := api.Get(ctx, "/policies/authorizationPolicy"); err == nil {
		perms := object(pol, "defaultUserRolePermissions")
		authzPolicy = map[string]any{
			"AllowInvitesFrom":              str(pol, "allowInvitesFrom"),
			"AllowedToCreateApps":           boolean(perms, "allowedToCreateApps"),
			"AllowedToCreateSecurityGroups": boolean(perms, "allowedToCreateSecurityGroups"),
			"BlockMsolPowerShell":           boolean(pol, "blockMsolPowerShell"),
			"AllowEmailVerifiedUsersToJoin": boolean(pol, "allowEmailVerifiedUsersToJoinOrganization"),
			"GuestUserRoleRestricted":       str(pol, "guestUserRoleId") == guestRestrictedRoleID,
		}
	}

	return map[string]any{
		"tenant": map[string]any{
			"DisplayName": str(org, "displayName"),
			"TenantId":    str(org, "id"),
			"CreatedAt":   str(org, "createdDateTime"),
		},
		"domains":              domainRows,
		"licensing":            skuRows,
		"authorization_policy": authzPolicy,
		"summary": map[string]any{
			"Total Domains":             len(domains),
			"Verified Domains":          verified,
			"Federated Domains":         federated,
			"Licensed SKUs":             len(skuRows),
			"Security Defaults Enabled": securityDefaults,
		},
	}, nil
}

// guestRestrictedRoleID is the directory role template for the most
// restricted guest permission level.
const guestRestrictedRoleID = "2af84b1e-32c8-42b7-82bc-daa82404023b"
