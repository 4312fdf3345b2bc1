package entra

import (
	"context"
	"fmt"

	"entrascan/internal/modules"
)

func init() {
	modules.Register(&appCredentials{})
}

type appCredentials struct{}

func (*appCredentials) ID() string       { return "app_credentials" }
func (*appCredentials) Title() string    { return "Application Credentials" }
func (*appCredentials) Provider() string { return "entra" }
func (*appCredentials) Description() string {
	return "Secret and certificate expiry across application registrations."
}

const expiringSoonDays = 30

func (m *appCredentials) Run(ctx context.Context, api modules.GraphAPI) (map[string]any, error) {
	apps, err := api.GetAll(ctx, "/applications?$select=id,appId,displayName,passwordCredentials,keyCredentials")
	if err != nil {
		return nil, fmt.Errorf("applications: %w", err)
	}

	var rows []map[string]any
	var expired, expiringSoon int
	for _, app := range apps {
		name := str(app, "displayName")
		for _, kind := range []struct {
			key   string
			label string
		}{
			{"passwordCredentials", "secret"},
			{"keyCredentials", "certificate"},
		} {
			for _, cred := range list(app, kind.key) {
				days := daysUntil(str(cred, "endDateTime"))
				status := "Active"
				switch {
				case days < 0:
					status = "Expired"
					expired++
				case days <= expiringSoonDays:
					status = "Expiring Soon"
					expiringSoon++
				}
				rows = append(rows, map[string]any{
					"AppName":         name,
					"AppId":           str(app, "appId"),
					"CredentialType":  kind.label,
					"CredentialName":  str(cred, "displayName"),
					"DaysUntilExpiry": days,
					"Status":          status,
				})
			}
		}
	}

	return map[string]any{
		"credentials": rows,
		"summary": map[string]any{
			"Total Applications": len(apps),
			"Total Credentials":  len(rows),
			"Expired":            expired,
			"Expiring Soon":      expiringSoon,
		},
	}, nil
}
