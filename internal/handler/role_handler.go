package handler

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/stockledger/stockledger/internal/model"
)

// RoleHandler publishes the role → privilege table tokens are minted from.
type RoleHandler struct {
	roles map[string][]string
}

func NewRoleHandler(roles map[string][]string) *RoleHandler {
	if roles == nil {
		roles = model.RolePrivileges
	}
	return &RoleHandler{roles: roles}
}

type roleView struct {
	Code       string   `json:"code"`
	Privileges []string `json:"privileges"`
}

// GetRoles returns all available roles
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	roles := make([]roleView, 0, len(h.roles))
	for code, privileges := range h.roles {
		roles = append(roles, roleView{Code: code, Privileges: privileges})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Code < roles[j].Code })
	return c.JSON(roles)
}

// GET /api/v1/privileges
func (h *RoleHandler) GetPrivileges(c *fiber.Ctx) error {
	return c.JSON(model.DefaultPrivileges)
}
