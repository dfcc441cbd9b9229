package model

// Privilege codes carried in operator tokens and checked per route.
const (
	PrivOrderView     = "order:view"
	PrivOrderCreate   = "order:create"
	PrivOrderApprove  = "order:approve"
	PrivOrderComplete = "order:complete"
	PrivOrderVoid     = "order:void"
	PrivOrderDelete   = "order:delete"
	PrivProductView   = "product:view"
	PrivProductCreate = "product:create"
	PrivStockView     = "stock:view"
	PrivStockAdjust   = "stock:adjust"
)

// DefaultPrivileges lists every privilege an operator token may carry.
var DefaultPrivileges = []string{
	PrivOrderView, PrivOrderCreate, PrivOrderApprove, PrivOrderComplete, PrivOrderVoid, PrivOrderDelete,
	PrivProductView, PrivProductCreate, PrivStockView, PrivStockAdjust,
}

// Role codes as constants
const (
	RoleMasterAdmin = "MASTER_ADMIN"
	RoleAdmin       = "ADMIN"
	RoleCashier     = "CASHIER"
)

// RolePrivileges is the default privilege set minted for each role.
var RolePrivileges = map[string][]string{
	RoleMasterAdmin: DefaultPrivileges,
	RoleAdmin: {
		PrivOrderView, PrivOrderCreate, PrivOrderApprove, PrivOrderComplete, PrivOrderVoid,
		PrivProductView, PrivProductCreate, PrivStockView, PrivStockAdjust,
	},
	RoleCashier: {PrivOrderView, PrivOrderCreate, PrivProductView, PrivStockView},
}
