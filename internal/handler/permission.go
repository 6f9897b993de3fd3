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

// PermissionStore is the persistence surface the permission endpoints
// need. *repository.PermissionRepo satisfies it.
type PermissionStore interface {
	List(ctx context.Context, page, pageSize int) ([]model.Permission, int64, error)
	GetByID(ctx context.Context, id uint64) (model.Permission, error)
	Create(ctx context.Context, p *model.Permission) error
	Update(ctx context.Context, p model.Permission) error
	Delete(ctx context.Context, id uint64) error
}

// PermissionHandler implements the /v1/permissions endpoints.
type PermissionHandler struct {
	Permissions PermissionStore
}

func NewPermissionHandler(perms PermissionStore) *PermissionHandler {
	return &PermissionHandler{Permissions: perms}
}

type permissionDTO struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

func toPermissionDTO(p model.Permission) permissionDTO {
	return permissionDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Created:     p.CreatedAt,
		Updated:     p.UpdatedAt,
	}
}

type permissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r permissionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 255)),
	)
}

type updatePermissionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (r updatePermissionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 255)),
	)
}

// List handles GET /v1/permissions with page/pageSize query parameters.
func (h *PermissionHandler) List(c echo.Context) error {
	page, pageSize := parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	perms, total, err := h.Permissions.List(ctx, page, pageSize)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	items := make([]permissionDTO, 0, len(perms))
	for _, p := range perms {
		items = append(items, toPermissionDTO(p))
	}
	return utils.OK(c, http.StatusOK, "Permissions retrieved successfully.", echo.Map{
		"permissions": items,
		"page":        page,
		"pageSize":    pageSize,
		"total":       total,
	})
}

// Get handles GET /v1/permissions/:id.
func (h *PermissionHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Permissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Permissions not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return utils.OK(c, http.StatusOK, "Permissions retrieved successfully.", toPermissionDTO(p))
}

// Create handles POST /v1/permissions.
func (h *PermissionHandler) Create(c echo.Context) error {
	var req permissionRequest
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return utils.Fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p := model.Permission{Name: req.Name, Description: req.Description}
	if err := h.Permissions.Create(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return utils.Fail(c, http.StatusConflict, "Permissions already exists.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return utils.OK(c, http.StatusCreated, "Permissions created successfully.", toPermissionDTO(p))
}

// Update handles PATCH /v1/permissions/:id. Omitted fields keep their
// current value.
func (h *PermissionHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	var req updatePermissionRequest
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return utils.Fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Permissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Permissions not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if err := h.Permissions.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return utils.Fail(c, http.StatusConflict, "Permissions already exists.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return utils.OK(c, http.StatusOK, "Permissions updated successfully.", toPermissionDTO(p))
}

// Delete handles DELETE /v1/permissions/:id; role links cascade.
func (h *PermissionHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Permissions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Permissions not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return utils.OK(c, http.StatusOK, "Permissions deleted successfully.", nil)
}
