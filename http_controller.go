package twofactor

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterSecondFactorRoutes mounts the JSON endpoints the login/pairing UI
// drives. The UI itself lives elsewhere; this surface only speaks outcomes.
func RegisterSecondFactorRoutes[T any](app router.Router[T], opts ...ControllerOption) {
	controller := NewSecondFactorController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("twofactor.login.post")

	app.Post(controller.Routes.Confirm, controller.ConfirmPost).
		SetName("twofactor.confirm.post")

	app.Post(controller.Routes.Pair, controller.PairPost).
		SetName("twofactor.pair.post")

	app.Post(controller.Routes.Unpair, controller.UnpairPost).
		SetName("twofactor.unpair.post")

	app.Get(fmt.Sprintf("%s/:username", controller.Routes.Status), controller.StatusGet).
		SetName("twofactor.status.get")
}

type ControllerRoutes struct {
	Login   string
	Confirm string
	Pair    string
	Unpair  string
	Status  string
}

// SecondFactorController exposes the package over go-router.
type SecondFactorController struct {
	Debug           bool
	Logger          Logger
	Auth            SecondFactorAuthenticator
	Pairer          Pairer
	ChallengeTokens *ChallengeTokenService
	Routes          *ControllerRoutes
	ErrorHandler    router.ErrorHandler
}

type ControllerOption func(*SecondFactorController) *SecondFactorController

// NewSecondFactorController builds the controller, panicking on missing
// collaborators the same way the route registration would fail later anyway.
func NewSecondFactorController(opts ...ControllerOption) *SecondFactorController {
	c := &SecondFactorController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &ControllerRoutes{
			Login:   "/2fa/login",
			Confirm: "/2fa/confirm",
			Pair:    "/2fa/pair",
			Unpair:  "/2fa/unpair",
			Status:  "/2fa/status",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auth == nil {
		panic("Missing SecondFactorAuthenticator in twofactor controller...")
	}

	if c.Pairer == nil {
		panic("Missing Pairer in twofactor controller...")
	}

	return c
}

// WithControllerAuth sets the authenticator.
func WithControllerAuth(auth SecondFactorAuthenticator) ControllerOption {
	return func(c *SecondFactorController) *SecondFactorController {
		c.Auth = auth
		return c
	}
}

// WithControllerPairer sets the pairing service.
func WithControllerPairer(pairer Pairer) ControllerOption {
	return func(c *SecondFactorController) *SecondFactorController {
		c.Pairer = pairer
		return c
	}
}

// WithControllerChallengeTokens enables signed challenge reference tokens in
// login/confirm responses.
func WithControllerChallengeTokens(ts *ChallengeTokenService) ControllerOption {
	return func(c *SecondFactorController) *SecondFactorController {
		c.ChallengeTokens = ts
		return c
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *SecondFactorController) *SecondFactorController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerDebug toggles payload debug printing.
func WithControllerDebug(debug bool) ControllerOption {
	return func(c *SecondFactorController) *SecondFactorController {
		c.Debug = debug
		return c
	}
}

// LoginRequest payload
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 200)),
	)
}

func (a *SecondFactorController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"validation": err.Error(),
		})
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	result, err := a.Auth.ValidateCredentials(ctx.Context(), payload.Username, payload.Password)
	if err != nil {
		// Fail closed with a generic message; infrastructure detail stays
		// in the logs.
		a.Logger.Error("login aborted", "username", payload.Username, "error", err)
		return ctx.JSON(fiber.StatusServiceUnavailable, map[string]any{
			"error": "authentication unavailable",
		})
	}

	switch {
	case result.ChallengePending():
		body := map[string]any{"outcome": result.Outcome}
		if a.ChallengeTokens != nil && result.Challenge != nil {
			token, err := a.ChallengeTokens.Issue(*result.Challenge)
			if err != nil {
				a.Logger.Error("failed to issue challenge token", "error", err)
				return ctx.JSON(fiber.StatusServiceUnavailable, map[string]any{
					"error": "authentication unavailable",
				})
			}
			body["challenge_token"] = token
		}
		return ctx.JSON(fiber.StatusAccepted, body)
	case result.Authenticated():
		return ctx.JSON(fiber.StatusOK, map[string]any{"outcome": result.Outcome})
	default:
		return ctx.JSON(fiber.StatusUnauthorized, map[string]any{"outcome": OutcomeDenied})
	}
}

// ConfirmRequest payload
type ConfirmRequest struct {
	Username       string `form:"username" json:"username"`
	ChallengeToken string `form:"challenge_token" json:"challenge_token"`
	Code           string `form:"code" json:"code"`
}

// Validate will run validation rules
func (r ConfirmRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 100)),
	)
}

func (a *SecondFactorController) ConfirmPost(ctx router.Context) error {
	payload := new(ConfirmRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"validation": err.Error(),
		})
	}

	username := NormalizeUsername(payload.Username)

	// A signed challenge token overrides the bare username so the confirm
	// request does not have to trust client-provided identity.
	if payload.ChallengeToken != "" && a.ChallengeTokens != nil {
		ref, err := a.ChallengeTokens.Validate(payload.ChallengeToken)
		if err != nil {
			return ctx.JSON(fiber.StatusUnauthorized, map[string]any{"outcome": OutcomeDenied})
		}
		username = ref.Username
	}

	if username == "" {
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"validation": "username or challenge_token is required",
		})
	}

	result := a.Auth.ConfirmChallenge(username, payload.Code)
	if result.Authenticated() {
		return ctx.JSON(fiber.StatusOK, map[string]any{"outcome": result.Outcome})
	}

	return ctx.JSON(fiber.StatusUnauthorized, map[string]any{"outcome": OutcomeDenied})
}

// PairRequest payload
type PairRequest struct {
	Username     string `form:"username" json:"username"`
	PairingToken string `form:"pairing_token" json:"pairing_token"`
}

// Validate will run validation rules
func (r PairRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.PairingToken, validation.Required, validation.Length(4, 100)),
	)
}

func (a *SecondFactorController) PairPost(ctx router.Context) error {
	payload := new(PairRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"validation": err.Error(),
		})
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	accountID, err := a.Pairer.Pair(ctx.Context(), payload.Username, payload.PairingToken)
	if err != nil {
		// The UI gets a generic failure and retries the flow from scratch;
		// remote error detail never leaks past the logs.
		a.Logger.Error("pairing failed", "username", payload.Username, "error", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"error": "pairing failed",
		})
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"account_id": accountID})
}

// UnpairRequest payload
type UnpairRequest struct {
	Username string `form:"username" json:"username"`
}

// Validate will run validation rules
func (r UnpairRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 200)),
	)
}

func (a *SecondFactorController) UnpairPost(ctx router.Context) error {
	payload := new(UnpairRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"validation": err.Error(),
		})
	}

	err := a.Pairer.Unpair(ctx.Context(), payload.Username)
	if err != nil {
		// Local state is already cleared at this point; the caller still
		// needs to know the remote release failed.
		a.Logger.Error("unpair remote release failed", "username", payload.Username, "error", err)
		return ctx.JSON(fiber.StatusBadGateway, map[string]any{
			"error": "unpair completed locally, remote release failed",
		})
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{"ok": true})
}

func (a *SecondFactorController) StatusGet(ctx router.Context) error {
	username := ctx.Param("username", "")
	if username == "" {
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"validation": "username is required",
		})
	}

	accountID, err := a.Pairer.AccountIDFor(ctx.Context(), username)
	if err != nil {
		if errors.IsNotFound(err) {
			return ctx.JSON(fiber.StatusNotFound, map[string]any{
				"error": "unknown user",
			})
		}
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"username": NormalizeUsername(username),
		"paired":   accountID != "",
	})
}

func defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	return c.JSON(richErr.Code, map[string]any{
		"error": richErr.Message,
	})
}
