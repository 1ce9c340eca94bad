package identity

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// APIController exposes the identity lifecycle over JSON routes.
type APIController struct {
	Logger     Logger
	Registrar  *Registrar
	Auther     *Auther
	Verifier   *EmailVerifier
	Linker     *ProviderLinker
	Providers  VerifierRegistry
	Dispatcher EmailDispatcher
}

type APIControllerOption func(*APIController) *APIController

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) APIControllerOption {
	return func(c *APIController) *APIController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithDispatcher wires a verification email dispatcher into registration.
func WithDispatcher(dispatcher EmailDispatcher) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Dispatcher = dispatcher
		return c
	}
}

// NewAPIController creates a controller for the given services.
func NewAPIController(registrar *Registrar, auther *Auther, verifier *EmailVerifier, linker *ProviderLinker, providers VerifierRegistry, opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger:    defLogger{},
		Registrar: registrar,
		Auther:    auther,
		Verifier:  verifier,
		Linker:    linker,
		Providers: providers,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Registrar == nil || c.Auther == nil || c.Verifier == nil {
		panic("Missing identity services in API controller...")
	}

	return c
}

// RegisterRoutes registers the identity routes.
func (c *APIController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/register", c.Register)
	group.Post("/login", c.Login)
	group.Post("/verify-email", c.VerifyEmail)
	group.Post("/:provider/sign-in", c.ProviderSignIn)
}

// RegisterRequest payload
type RegisterRequest struct {
	Email       string `form:"email" json:"email"`
	Password    string `form:"password" json:"password"`
	DisplayName string `form:"display_name" json:"display_name"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.DisplayName, validation.Length(0, 200)),
	)
}

// Register creates an inactive account and dispatches the verification
// email. A dispatch failure is surfaced even though the account and token
// were already durably created.
func (c *APIController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "unable to parse request",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "validation failed",
			"validation": err.Error(),
		})
	}

	account, token, err := c.Registrar.Register(ctx.Context(), RegisterAccountMessage{
		Email:       payload.Email,
		Password:    payload.Password,
		DisplayName: payload.DisplayName,
	})
	if err != nil {
		return c.handleError(ctx, err)
	}

	if c.Dispatcher != nil {
		if err := c.Dispatcher.SendVerificationEmail(ctx.Context(), account.Email, token.Token); err != nil {
			c.Logger.Error("Register failed to dispatch verification email", "account", account.ID.String(), "error", err)
			status, body := errorResponse(err)
			body["account_id"] = account.ID.String()
			return ctx.JSON(status, body)
		}
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"account":               account,
		"verification_required": true,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login validates local credentials and returns a bearer token.
func (c *APIController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "unable to parse request",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "validation failed",
			"validation": err.Error(),
		})
	}

	token, err := c.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// VerifyEmailRequest payload
type VerifyEmailRequest struct {
	Token string `form:"token" json:"token"`
}

// Validate will run validation rules
func (r VerifyEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

// VerifyEmail redeems a verification token and activates the account.
func (c *APIController) VerifyEmail(ctx router.Context) error {
	payload := new(VerifyEmailRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "unable to parse request",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "validation failed",
			"validation": err.Error(),
		})
	}

	account, err := c.Verifier.Verify(ctx.Context(), payload.Token)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": account,
	})
}

// ProviderSignInRequest payload
type ProviderSignInRequest struct {
	Credential string `form:"credential" json:"credential"`
}

// Validate will run validation rules
func (r ProviderSignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Credential, validation.Required),
	)
}

// ProviderSignIn verifies a third-party credential and signs the asserted
// identity into an account.
func (c *APIController) ProviderSignIn(ctx router.Context) error {
	if c.Providers == nil || c.Linker == nil {
		return ctx.JSON(router.StatusNotFound, map[string]any{
			"error": "provider sign in not configured",
		})
	}

	providerName := ctx.Param("provider")

	payload := new(ProviderSignInRequest)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "unable to parse request",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "validation failed",
			"validation": err.Error(),
		})
	}

	asserted, err := c.Providers.Verify(ctx.Context(), providerName, payload.Credential)
	if err != nil {
		return c.handleError(ctx, err)
	}

	account, token, err := c.Linker.SignIn(ctx.Context(), *asserted)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account":      account,
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (c *APIController) handleError(ctx router.Context, err error) error {
	status, payload := errorResponse(err)
	if status >= router.StatusInternalServerError {
		c.Logger.Error("API controller error", "error", err)
	}
	return ctx.JSON(status, payload)
}
