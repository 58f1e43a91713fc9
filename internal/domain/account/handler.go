package account

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/saran-r-2004/GPS-tracking-system-for-ambulance/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the login and registration endpoints. session
// guards GET /session and is normally auth.BearerMiddleware; guard, if
// given, wraps every credential-accepting POST (rate limiting).
func (h *Handler) RegisterRoutes(api *echo.Group, session echo.MiddlewareFunc, guard ...echo.MiddlewareFunc) {
	api.POST("/driver/register", h.RegisterDriver, guard...)
	api.POST("/driver/login", h.LoginDriver, guard...)
	api.POST("/user/login", h.LoginUser, guard...)
	api.POST("/hospital/register", h.RegisterHospital, guard...)
	api.POST("/hospital/login", h.LoginHospital, guard...)
	api.GET("/hospital/:hospitalId", h.GetHospital)
	api.GET("/session", h.GetSession, session)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "account store unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// body builds the success envelope, adding the fallback flag only when set.
func body(message string, fallback bool, kv ...interface{}) map[string]interface{} {
	out := map[string]interface{}{"success": true}
	if message != "" {
		out["message"] = message
	}
	if fallback {
		out["fallback"] = true
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

func (h *Handler) RegisterDriver(c echo.Context) error {
	var req RegisterDriverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, fallback, err := h.svc.RegisterDriver(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, body("Driver registered successfully", fallback, "ambulance", a))
}

func (h *Handler) LoginDriver(c echo.Context) error {
	var req DriverLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, sess, err := h.svc.LoginDriver(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, body("Login successful", sess.Fallback,
		"driver", a, "token", sess.Token, "expiresAt", sess.ExpiresAt))
}

func (h *Handler) LoginUser(c echo.Context) error {
	var req UserLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, sess, err := h.svc.LoginUser(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, body("User login successful", sess.Fallback,
		"user", u, "token", sess.Token, "expiresAt", sess.ExpiresAt))
}

func (h *Handler) RegisterHospital(c echo.Context) error {
	var req RegisterHospitalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hosp, fallback, err := h.svc.RegisterHospital(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, body("Hospital registered successfully", fallback, "hospital", hosp))
}

func (h *Handler) LoginHospital(c echo.Context) error {
	var req HospitalLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hosp, sess, err := h.svc.LoginHospital(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, body("Hospital login successful", sess.Fallback,
		"hospital", hosp, "token", sess.Token, "expiresAt", sess.ExpiresAt))
}

func (h *Handler) GetHospital(c echo.Context) error {
	hosp, fallback, err := h.svc.GetHospital(c.Request().Context(), c.Param("hospitalId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, body("", fallback, "hospital", hosp))
}

// GetSession echoes the caller's token claims.
func (h *Handler) GetSession(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	session := map[string]interface{}{
		"kind":    claims.Kind,
		"subject": claims.Subject,
		"name":    claims.Name,
	}
	if claims.ExpiresAt != nil {
		session["expiresAt"] = claims.ExpiresAt.Time
	}
	return c.JSON(http.StatusOK, body("", claims.Fallback, "session", session))
}
