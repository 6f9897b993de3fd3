package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rbac-admin/internal/auth"
	"github.com/iliyamo/rbac-admin/internal/middleware"
	"github.com/iliyamo/rbac-admin/internal/model"
	"github.com/iliyamo/rbac-admin/internal/repository"
	"github.com/iliyamo/rbac-admin/internal/utils"
)

// UserStore is the persistence surface the user endpoints need.
// *repository.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, u *model.User, p *model.Profile) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context, page, pageSize int) ([]model.User, int64, error)
	Update(ctx context.Context, u model.User, p model.Profile) error
	Delete(ctx context.Context, id uint64) error
	GetProfile(ctx context.Context, userID uint64) (model.Profile, error)
	AssignRole(ctx context.Context, userID, roleID uint64) error
	UpdatePassword(ctx context.Context, userID uint64, hash string) error
}

// UserHandler implements the /v1/users endpoints.
type UserHandler struct {
	Users      UserStore
	Resolver   *auth.Resolver
	BcryptCost int
}

func NewUserHandler(users UserStore, resolver *auth.Resolver, bcryptCost int) *UserHandler {
	return &UserHandler{Users: users, Resolver: resolver, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type profileDTO struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"userId"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Gender    int        `json:"gender"`
	Birthday  *time.Time `json:"birthday"`
	Address   string     `json:"address"`
	Phone     string     `json:"phone"`
	Company   string     `json:"company"`
	AvatarURL string     `json:"avatarUrl"`
	Created   time.Time  `json:"created"`
	Updated   time.Time  `json:"updated"`
}

type userDTO struct {
	ID       uint64    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Status   string    `json:"status"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

type userDetailDTO struct {
	userDTO
	Profile     *profileDTO `json:"profile,omitempty"`
	Roles       []string    `json:"roles"`
	Permissions []string    `json:"permissions"`
}

func toUserDTO(u model.User) userDTO {
	return userDTO{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Status:   u.Status,
		Created:  u.CreatedAt,
		Updated:  u.UpdatedAt,
	}
}

func toProfileDTO(p model.Profile) profileDTO {
	return profileDTO{
		ID:        p.ID,
		UserID:    p.UserID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Gender:    p.Gender,
		Birthday:  p.Birthday,
		Address:   p.Address,
		Phone:     p.Phone,
		Company:   p.Company,
		AvatarURL: p.AvatarURL,
		Created:   p.CreatedAt,
		Updated:   p.UpdatedAt,
	}
}

type createUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    int    `json:"gender"`
	Birthday  string `json:"birthday"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	AvatarURL string `json:"avatarUrl"`
}

func (r createUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Gender, validation.Min(0), validation.Max(2)),
		validation.Field(&r.Birthday, validation.Date("2006-01-02")),
	)
}

type updateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"` // current password, required to edit
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    int    `json:"gender"`
	Birthday  string `json:"birthday"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	AvatarURL string `json:"avatarUrl"`
}

func (r updateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Gender, validation.Min(0), validation.Max(2)),
		validation.Field(&r.Birthday, validation.Date("2006-01-02")),
	)
}

// ----- helpers -----

func parsePagination(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func parseBirthday(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// ----- handlers -----

// List handles GET /v1/users with page/pageSize query parameters.
func (h *UserHandler) List(c echo.Context) error {
	page, pageSize := parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, total, err := h.Users.List(ctx, page, pageSize)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	items := make([]userDTO, 0, len(users))
	for _, u := range users {
		items = append(items, toUserDTO(u))
	}
	return utils.OK(c, http.StatusOK, "Users retrieved successfully.", echo.Map{
		"users":    items,
		"page":     page,
		"pageSize": pageSize,
		"total":    total,
	})
}

// Get handles GET /v1/users/:id and returns the user with profile,
// roles and effective permissions.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	return h.userDetail(c, ctx, id)
}

// Me handles GET /v1/users/me for the authenticated subject.
func (h *UserHandler) Me(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return utils.Fail(c, http.StatusUnauthorized, utils.MsgAccessDenied)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	return h.userDetail(c, ctx, id.UserID)
}

func (h *UserHandler) userDetail(c echo.Context, ctx context.Context, id uint64) error {
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Users not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}

	detail := userDetailDTO{userDTO: toUserDTO(u), Roles: []string{}, Permissions: []string{}}
	if p, err := h.Users.GetProfile(ctx, id); err == nil {
		dto := toProfileDTO(p)
		detail.Profile = &dto
	}
	roles, perms, err := h.Resolver.RolesAndPermissions(ctx, id)
	if err == nil {
		detail.Roles = roles
		detail.Permissions = perms
	}
	return utils.OK(c, http.StatusOK, "Users retrieved successfully.", detail)
}

// GetProfile handles GET /v1/users/:id/profile.
func (h *UserHandler) GetProfile(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Users.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Users not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return utils.OK(c, http.StatusOK, "Get Users completed successfully.", toProfileDTO(p))
}

// Create handles POST /v1/users: a new active user with its profile.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return utils.Fail(c, http.StatusBadRequest, err.Error())
	}

	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}

	u := model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
		Status:   model.StatusActive,
	}
	p := model.Profile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		Birthday:  parseBirthday(req.Birthday),
		Address:   req.Address,
		Phone:     req.Phone,
		Company:   req.Company,
		AvatarURL: req.AvatarURL,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Create(ctx, &u, &p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return utils.Fail(c, http.StatusConflict, "Users already exists.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}

	detail := userDetailDTO{userDTO: toUserDTO(u), Roles: []string{}, Permissions: []string{}}
	dto := toProfileDTO(p)
	detail.Profile = &dto
	return utils.OK(c, http.StatusCreated, "Users created successfully.", detail)
}

// Update handles PATCH /v1/users/:id. The caller must supply the
// user's current password to change anything; the password itself is
// not updated here.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return utils.Fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Users not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	if !utils.VerifyPassword(u.Password, req.Password) {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgPasswordToEdit)
	}

	u.Username = req.Username
	u.Email = req.Email
	p := model.Profile{
		UserID:    id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		Birthday:  parseBirthday(req.Birthday),
		Address:   req.Address,
		Phone:     req.Phone,
		Company:   req.Company,
		AvatarURL: req.AvatarURL,
	}
	if err := h.Users.Update(ctx, u, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return utils.Fail(c, http.StatusConflict, "Users already exists.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return h.userDetail(c, ctx, id)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r changePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

// ChangePassword handles PATCH /v1/users/:id/password. The current
// password must be supplied even when a superior performs the change.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return utils.Fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Users not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	if !utils.VerifyPassword(u.Password, req.CurrentPassword) {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgPasswordToEdit)
	}

	hash, err := utils.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	if err := h.Users.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Users not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return utils.OK(c, http.StatusOK, "Password updated successfully.", nil)
}

type assignRoleRequest struct {
	RoleID uint64 `json:"roleId"`
}

func (r assignRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RoleID, validation.Required),
	)
}

// AssignRole handles POST /v1/users/:id/roles: grants the user an
// additional role. Granting a role twice is a no-op.
func (h *UserHandler) AssignRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	var req assignRoleRequest
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}
	if err := req.Validate(); err != nil {
		return utils.Fail(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.AssignRole(ctx, id, req.RoleID); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return utils.Fail(c, http.StatusBadRequest, "User or role does not exist.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return h.userDetail(c, ctx, id)
}

// Delete handles DELETE /v1/users/:id (physical deletion; role links,
// profile and refresh tokens cascade).
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return utils.Fail(c, http.StatusBadRequest, utils.MsgInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Users not found.")
		}
		return utils.Fail(c, http.StatusInternalServerError, utils.MsgInternalError)
	}
	return utils.OK(c, http.StatusOK, "Users deleted successfully.", nil)
}
