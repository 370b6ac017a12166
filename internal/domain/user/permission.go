package user

type Permission string

const (
	// Memorandum self-service
	PermissionMemorandumViewOwn   Permission = "memorandum.view_own"
	PermissionMemorandumSubsanate Permission = "memorandum.subsanate"

	// Memorandum administration
	PermissionMemorandumViewAll Permission = "memorandum.view_all"
	PermissionMemorandumReview  Permission = "memorandum.review"
	PermissionMemorandumClose   Permission = "memorandum.close"

	// Reference data
	PermissionReferenceView Permission = "reference.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		// Owner has all permissions
		PermissionMemorandumViewOwn,
		PermissionMemorandumSubsanate,
		PermissionMemorandumViewAll,
		PermissionMemorandumReview,
		PermissionMemorandumClose,
		PermissionReferenceView,
	},
	RoleManager: {
		PermissionMemorandumViewOwn,
		PermissionMemorandumSubsanate,
		PermissionMemorandumViewAll,
		PermissionMemorandumReview,
		PermissionMemorandumClose,
		PermissionReferenceView,
	},
	RoleEmployee: {
		// Employee handles their own memoranda only
		PermissionMemorandumViewOwn,
		PermissionMemorandumSubsanate,
	},
	RolePending: {
		// Pending role has no permissions
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
