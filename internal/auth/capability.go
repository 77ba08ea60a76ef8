package auth

import "github.com/tablewise/restaurant-api/internal/enum"

// Capability names an operation that is granted per role.
type Capability string

const (
	CapCatalogWrite          Capability = "catalog:write"
	CapOrdersReadAll         Capability = "orders:read-all"
	CapOrdersCreateForOthers Capability = "orders:create-for-others"
	CapOrdersUpdateStatus    Capability = "orders:update-status"
	CapOrdersDelete          Capability = "orders:delete"
	CapUsersManage           Capability = "users:manage"
	CapStatisticsRead        Capability = "statistics:read"
)

var roleCapabilities = map[string]map[Capability]bool{
	enum.RoleAdmin: {
		CapCatalogWrite:          true,
		CapOrdersReadAll:         true,
		CapOrdersCreateForOthers: true,
		CapOrdersUpdateStatus:    true,
		CapOrdersDelete:          true,
		CapUsersManage:           true,
		CapStatisticsRead:        true,
	},
	enum.RoleWaiter: {
		CapOrdersReadAll:         true,
		CapOrdersCreateForOthers: true,
		CapOrdersUpdateStatus:    true,
	},
	enum.RoleUser: {},
}

// Can reports whether role holds capability. Unknown roles hold nothing.
func Can(role string, c Capability) bool {
	return roleCapabilities[role][c]
}
