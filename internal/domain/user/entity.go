package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Reviews memoranda
	RoleEmployee Role = "employee" // Regular employee
	RolePending  Role = "pending"  // Still in onboarding
)

func (r Role) IsValid() bool {
	_, ok := RolePermissions[r]
	return ok
}

// Principal is the caller identity carried by an access token.
type Principal struct {
	UserID     string
	Email      string
	CompanyID  string
	EmployeeID string
	Role       Role
}

// FromClaims reads the access-token claims set by the token issuer.
func FromClaims(claims map[string]interface{}) (Principal, error) {
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return Principal{}, ErrInvalidClaims
	}
	companyID, _ := claims["company_id"].(string)
	if companyID == "" {
		return Principal{}, ErrCompanyIDRequired
	}
	role, _ := claims["role"].(string)
	if !Role(role).IsValid() {
		return Principal{}, ErrInvalidClaims
	}
	employeeID, _ := claims["employee_id"].(string)
	email, _ := claims["email"].(string)

	return Principal{
		UserID:     userID,
		Email:      email,
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Role:       Role(role),
	}, nil
}

func (p Principal) Can(permission Permission) bool {
	return HasPermission(p.Role, permission)
}

// IsReviewer reports whether p may decide on memoranda.
func (p Principal) IsReviewer() bool {
	return p.Can(PermissionMemorandumReview)
}

// IsManager checks if user is manager or owner
func (p Principal) IsManager() bool {
	return p.Role == RoleManager || p.Role == RoleOwner
}
