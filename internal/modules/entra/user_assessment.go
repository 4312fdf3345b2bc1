package entra

import (
	"context"
	"fmt"

	"entrascan/internal/modules"
)

func init() {
	modules.Register(&userAssessment{})
}

type userAssessment struct{}

func (*userAssessment) ID() string       { return "user_assessment" }
func (*userAssessment) Title() string    { return "User Assessment" }
func (*userAssessment) Provider() string { return "entra" }
func (*userAssessment) Description() string {
	return "User inventory with MFA registration, guest and sign-in recency posture."
}

const staleAfterDays = 90

func (m *userAssessment) Run(ctx context.Context, api modules.GraphAPI) (map[string]any, error) {
	users, err := api.GetAll(ctx, "/users?$select=id,displayName,userPrincipalName,accountEnabled,userType,signInActivity")
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}

	// MFA registration lives in a separate report; index it by user
	// ID. The report needs an AAD P1 license, so treat a failure as
	// "no registration data" rather than aborting the module.
	mfaByID := map[string]bool{}
	mfaReportOK := false
	if regs, err := api.GetAll(ctx, "/reports/authenticationMethods/userRegistrationDetails"); err == nil {
		mfaReportOK = true
		for _, r := range regs {
			mfaByID[str(r, "id")] = boolean(r, "isMfaRegistered")
		}
	}

	var (
		rows         = make([]map[string]any, 0, len(users))
		mfaEnrolled  int
		guests       int
		stale        int
		disabled     int
		neverSignIn  int
	)
	for _, u := range users {
		id := str(u, "id")
		userType := str(u, "userType")
		enabled := boolean(u, "accountEnabled")
		days := daysSince(str(object(u, "signInActivity"), "lastSignInDateTime"))
		mfa := mfaByID[id]

		if mfa {
			mfaEnrolled++
		}
		if userType == "Guest" {
			guests++
		}
		if !enabled {
			disabled++
		}
		if days < 0 {
			neverSignIn++
		}
		if enabled && days > staleAfterDays {
			stale++
		}

		rows = append(rows, map[string]any{
			"DisplayName":       str(u, "displayName"),
			"UserPrincipalName": str(u, "userPrincipalName"),
			"AccountEnabled":    enabled,
			"UserType":          userType,
			"MFARegistered":     mfa,
			"LastSignInDays":    days,
		})
	}

	return map[string]any{
		"users":                rows,
		"mfa_report_available": mfaReportOK,
		"summary": map[string]any{
			"Total Users":     len(users),
			"MFA Enrolled":    mfaEnrolled,
			"Guest Users":     guests,
			"Stale Accounts":  stale,
			"Disabled Users":  disabled,
			"Never Signed In": neverSignIn,
		},
	}, nil
}
