package sessions

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// AuthController serves the JSON auth surface. UI collaborators consume these
// routes; everything else in the product talks to the subsystem through the
// middleware and the client package.
type AuthController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Auther     *Auther
	Middleware *AuthMiddleware
	Hasher     PasswordAuthenticator
	cfg        Config
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(repo RepositoryManager, auther *Auther, mw *AuthMiddleware, cfg Config, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger{},
		Repo:       repo,
		Auther:     auther,
		Middleware: mw,
		Hasher:     NewHasher(cfg.GetBcryptCost()),
		cfg:        cfg,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth and admin routes. The admin group is
// gated by RequireAuth + RequireRole(admin) before any handler runs, so a
// non-admin always gets 403 regardless of whether the target resource exists.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	requireAuth := controller.Middleware.RequireAuth()

	auth := app.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Get("/me", requireAuth, controller.Me)
	auth.Put("/profile", requireAuth, controller.UpdateProfile)
	auth.Put("/change-password", requireAuth, controller.ChangePassword)
	auth.Get("/verify", requireAuth, controller.Verify)

	admin := app.Group("/admin/users", requireAuth, controller.Middleware.RequireRole(RoleAdmin))
	admin.Get("/", controller.AdminListUsers)
	admin.Get("/:id", controller.AdminGetUser)
	admin.Put("/:id", controller.AdminUpdateUser)
	admin.Delete("/:id", controller.AdminDeleteUser)
}

// RegisterRequest payload
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
	Company     string `json:"company"`
	Phone       string `json:"phone_number"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 30)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
		validation.Field(&r.DisplayName, validation.Length(0, 200)),
		validation.Field(&r.Phone, validation.By(validatePhoneNumber)),
	)
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return WriteError(c, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Debug("register user validate payload", "error", err)
		return writeValidationError(c, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	msg := RegisterUserMessage{
		Username:    payload.Username,
		Email:       payload.Email,
		Password:    payload.Password,
		DisplayName: payload.DisplayName,
		Address:     payload.Address,
		Company:     payload.Company,
		Phone:       normalizePhone(payload.Phone),
	}

	registerUser := NewRegisterUserHandler(a.Repo, a.Hasher)
	if err := registerUser.Execute(c.UserContext(), msg); err != nil {
		a.Logger.Error("register user execute", "error", err)
		return WriteError(c, err)
	}

	user := registerUser.User()

	token, err := a.Auther.IssueToken(IdentityFromUser(user))
	if err != nil {
		a.Logger.Error("register user token", "error", err)
		return WriteError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user.Sanitize(),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return writeValidationError(c, err)
	}

	token, identity, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return WriteError(c, err)
	}

	user, err := a.Repo.Users().GetByIdentifier(c.UserContext(), identity.ID())
	if err != nil {
		return WriteError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.Sanitize(),
	})
}

func (a *AuthController) Me(c *fiber.Ctx) error {
	user, ok := UserFromCtx(c, a.cfg.GetContextKey())
	if !ok {
		return WriteError(c, ErrAuthHeaderMissing)
	}
	return c.JSON(user)
}

// UpdateProfileRequest carries profile-level mutations. Role, active flag,
// and password are not touchable through this payload.
type UpdateProfileRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
	Company     string `json:"company"`
	Phone       string `json:"phone_number"`
}

// Validate will run validation rules
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(3, 30)),
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.DisplayName, validation.Length(0, 200)),
		validation.Field(&r.Phone, validation.By(validatePhoneNumber)),
	)
}

func (a *AuthController) UpdateProfile(c *fiber.Ctx) error {
	current, ok := UserFromCtx(c, a.cfg.GetContextKey())
	if !ok {
		return WriteError(c, ErrAuthHeaderMissing)
	}

	payload := new(UpdateProfileRequest)
	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return writeValidationError(c, err)
	}

	record := &User{ID: current.ID}
	record.Username = payload.Username
	record.Email = payload.Email
	record.DisplayName = payload.DisplayName
	record.Address = payload.Address
	record.Company = payload.Company
	record.Phone = normalizePhone(payload.Phone)

	updated, err := a.Repo.Users().UpdateByID(c.UserContext(), record)
	if err != nil {
		return WriteError(c, err)
	}

	return c.JSON(fiber.Map{"user": updated.Sanitize()})
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(MinPasswordLength, 100)),
	)
}

func (a *AuthController) ChangePassword(c *fiber.Ctx) error {
	current, ok := UserFromCtx(c, a.cfg.GetContextKey())
	if !ok {
		return WriteError(c, ErrAuthHeaderMissing)
	}

	payload := new(ChangePasswordRequest)
	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return writeValidationError(c, err)
	}

	changePassword := NewChangePasswordHandler(a.Repo, a.Hasher)
	if err := changePassword.Execute(c.UserContext(), ChangePasswordMessage{
		UserID:          current.ID,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	}); err != nil {
		return WriteError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// Verify returns 200 when the bearer token is valid. All the work happens in
// RequireAuth.
func (a *AuthController) Verify(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"valid": true})
}

func (a *AuthController) AdminListUsers(c *fiber.Ctx) error {
	records, err := a.Repo.Users().List(c.UserContext())
	if err != nil {
		return WriteError(c, err)
	}

	out := make([]*User, 0, len(records))
	for _, u := range records {
		out = append(out, u.Sanitize())
	}

	return c.JSON(fiber.Map{"users": out})
}

func (a *AuthController) AdminGetUser(c *fiber.Ctx) error {
	id, err := parseUserID(c)
	if err != nil {
		return WriteError(c, err)
	}

	user, err := a.Repo.Users().GetByID(c.UserContext(), id)
	if err != nil {
		return WriteError(c, err)
	}

	return c.JSON(fiber.Map{"user": user.Sanitize()})
}

// AdminUpdateUserRequest allows administrators to mutate role and the active
// flag along with profile fields.
type AdminUpdateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
	Company     string `json:"company"`
	Phone       string `json:"phone_number"`
	Role        string `json:"role"`
	IsActive    *bool  `json:"is_active"`
}

// Validate will run validation rules
func (r AdminUpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(3, 30)),
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.Role, validation.In(RoleUser, RoleAdmin)),
		validation.Field(&r.Phone, validation.By(validatePhoneNumber)),
	)
}

func (a *AuthController) AdminUpdateUser(c *fiber.Ctx) error {
	id, err := parseUserID(c)
	if err != nil {
		return WriteError(c, err)
	}

	payload := new(AdminUpdateUserRequest)
	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return writeValidationError(c, err)
	}

	record := &User{ID: id}
	record.Username = payload.Username
	record.Email = payload.Email
	record.DisplayName = payload.DisplayName
	record.Address = payload.Address
	record.Company = payload.Company
	record.Phone = normalizePhone(payload.Phone)
	record.Role = payload.Role

	updated, err := a.Repo.Users().UpdateByID(c.UserContext(), record)
	if err != nil {
		return WriteError(c, err)
	}

	if payload.IsActive != nil && *payload.IsActive != updated.IsActive {
		updated, err = a.Repo.Users().SetActive(c.UserContext(), id, *payload.IsActive)
		if err != nil {
			return WriteError(c, err)
		}
	}

	return c.JSON(fiber.Map{"user": updated.Sanitize()})
}

func (a *AuthController) AdminDeleteUser(c *fiber.Ctx) error {
	id, err := parseUserID(c)
	if err != nil {
		return WriteError(c, err)
	}

	if err := a.Repo.Users().DeleteByID(c.UserContext(), id); err != nil {
		return WriteError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func parseUserID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid user id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}
	return id, nil
}

// WriteError translates a structured error into its terminal HTTP response.
// This is the only place messages are formatted for users; inner layers
// return typed failures.
func WriteError(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status < http.StatusBadRequest || status > 599 {
		status = statusFromCategory(richErr)
	}

	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		},
	})
}

func statusFromCategory(richErr *errors.Error) int {
	switch richErr.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict, errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeValidationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"message":   "validation failed",
			"text_code": "VALIDATION_ERROR",
			"fields":    FormatValidationErrorToMap(err),
		},
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field→message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["_"] = err.Error()
	return out
}

func validatePhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := phonenumbers.Parse(s, "US"); err != nil {
		return fmt.Errorf("invalid phone number")
	}
	return nil
}

func normalizePhone(phone string) string {
	if phone == "" {
		return ""
	}
	num, err := phonenumbers.Parse(phone, "US")
	if err != nil {
		return phone
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
