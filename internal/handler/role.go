package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rbac-admin/internal/model"
	"github.com/iliyamo/rbac-admin/internal/repository"
	"github.com/iliyamo/rbac-admin/internal/utils"
)

// RoleStore is the persistence surface the role endpoints need.
// *repository.RoleRepo satisfies it.
type RoleStore interface {
	List(ctx context.Context, page, pageSize int) ([]model.Role, int64, error)
	GetByID(ctx context.Context, id uint64) (model.Role, error)
	PermissionsOf(ctx context.Context, roleID uint64) ([]repository.RolePermissionRow, error)
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role model.Role) error
	Delete(ctx context.Context, id uint64) error
	ReplacePermissions(ctx context.Context, roleID uint64, permissionIDs []uint64) error
}

// RoleHandler implements the /v1/roles endpoints.
type RoleHandler struct {
	Roles RoleStore
}

func NewRoleHandler(roles RoleStore) *RoleHandler { return &RoleHandler{Roles: roles} }

type roleDTO struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

type roleDetailDTO struct {
	roleDTO
	Permissions []repository.RolePermissionRow `json:"permissions"`
}

func toRoleDTO(r model.Role) roleDTO {
	return roleDTO{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Created:     r.CreatedAt,
		Updated:     r.UpdatedAt,
	}
}

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r roleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 255)),
	)
}

type updateRoleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (r updateRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 255)),
	)
}

type rolePermissionsRequest struct {
	PermissionIDs []uint64 `json:"permissionIds"`
}

// List handles GET /v1/roles with page/pageSize query parameters.
func (h *RoleHandler) List(c echo.Context) error {
	page, pageSize := parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roles, total, err := h.Roles.List(ctx, page, pageSize)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	items := make([]roleDTO, 0, len(roles))
	for _, r := range roles {
		items = append(items, toRoleDTO(r))
	}
	return utils.OK(c, http.StatusOK, "Roles retrieved successfully.", echo.Map{
		"roles":    items,
		"page":     page,
		"pageSize": pageSize,
		"total":    total,
	})
}

// Get handles GET /v1/roles/:id and includes the permission links.
func (h *RoleHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	return h.roleDetail(c, ctx, id)
}

func (h *RoleHandler) roleDetail(c echo.Context, ctx context.Context, id uint64) error {
	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Roles not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	links, err := h.Roles.PermissionsOf(ctx, id)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return utils.OK(c, http.StatusOK, "Roles retrieved successfully.",
		roleDetailDTO{roleDTO: toRoleDTO(role), Permissions: links})
}

// Create handles POST /v1/roles.
func (h *RoleHandler) Create(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return utils.Fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role := model.Role{Name: req.Name, Description: req.Description}
	if err := h.Roles.Create(ctx, &role); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return utils.Fail(c, http.StatusConflict, "Roles already exists.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return h.roleDetail(c, ctx, role.ID)
}

// Update handles PATCH /v1/roles/:id. Omitted fields keep their
// current value.
func (h *RoleHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return utils.Fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Roles not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	if req.Name != nil {
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if err := h.Roles.Update(ctx, role); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return utils.Fail(c, http.StatusConflict, "Roles already exists.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return h.roleDetail(c, ctx, id)
}

// Delete handles DELETE /v1/roles/:id. The SuperAdmin role is
// permanent and refuses deletion.
func (h *RoleHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Roles not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	if role.Name == model.RoleSuperAdmin {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgDeleteSuperRole)
	}
	if err := h.Roles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Roles not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return utils.OK(c, http.StatusOK, "Roles deleted successfully.", nil)
}

// UpdatePermissions handles PATCH /v1/roles/:id/permissions. The body
// carries the full desired permission id set for the role.
func (h *RoleHandler) UpdatePermissions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	var req rolePermissionsRequest
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Roles.ReplacePermissions(ctx, id, req.PermissionIDs); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return utils.Fail(c, http.StatusNotFound, "Roles not found.")
		case errors.Is(err, repository.ErrForeignKey):
			return utils.Fail(c, http.StatusBadRequest, "One or more permissions do not exist.")
		default:
			return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
		}
	}
	return h.roleDetail(c, ctx, id)
}
