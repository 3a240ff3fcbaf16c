package auth

import "crackers-backend/internal/models"

const (
	PermManageAdmins     = "manage_admins"
	PermManageProducts   = "manage_products"
	PermManageCategories = "manage_categories"
	PermManageBundles    = "manage_bundles"
	PermViewOrders       = "view_orders"
	PermManageOrders     = "manage_orders"
	PermVerifyPayments   = "verify_payments"
	PermExportOrders     = "export_orders"
	PermViewDashboard    = "view_dashboard"
)

var rolePermissions = map[models.Role][]string{
	models.RoleSuperAdmin: {
		PermManageAdmins, PermManageProducts, PermManageCategories, PermManageBundles,
		PermViewOrders, PermManageOrders, PermVerifyPayments, PermExportOrders, PermViewDashboard,
	},
	models.RoleAdmin: {
		PermManageProducts, PermManageCategories, PermManageBundles,
		PermViewOrders, PermManageOrders, PermVerifyPayments, PermExportOrders, PermViewDashboard,
	},
	models.RoleModerator: {
		PermViewOrders, PermManageOrders, PermViewDashboard,
	},
}

// PermissionsFor returns a fresh copy of the permissions granted to role.
func PermissionsFor(role models.Role) []string {
	return append([]string{}, rolePermissions[role]...)
}
