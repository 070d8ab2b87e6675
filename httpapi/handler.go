package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

const (
	paramUUID              = "uuid"
	queryIncludeRetired    = "includeRetired"
	queryName              = "name"
	queryEncounterType     = "encounterType"
	queryCriteria          = "query"
	healthStatusHealthy    = "healthy"
	logMsgRequestFailed    = "http request failed"
	logMsgRequestCompleted = "http request"
	logAttrError           = "error"
	logAttrMethod          = "method"
	logAttrURI             = "uri"
	logAttrStatus          = "status"
	logAttrLatencyMS       = "latency_ms"
)

// Handler serves the patient list API.
type Handler struct {
	lists    patientlist.ListStore
	resolver *patientlist.Resolver
	logger   *slog.Logger
}

// NewHandler creates a Handler. A nil logger discards log output.
func NewHandler(lists patientlist.ListStore, resolver *patientlist.Resolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Handler{
		lists:    lists,
		resolver: resolver,
		logger:   logger,
	}
}

// NewServer creates an echo server with recovery, request logging, and all routes registered.
func NewServer(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			h.logger.InfoContext(
				c.Request().Context(),
				logMsgRequestCompleted,
				logAttrMethod, v.Method,
				logAttrURI, v.URI,
				logAttrStatus, v.Status,
				logAttrLatencyMS, float64(v.Latency.Microseconds())/1000,
			)

			return nil
		},
	}))

	h.RegisterRoutes(e)

	return e
}

// RegisterRoutes registers all routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	lists := e.Group("/v1/patientlists")
	lists.GET("", h.ListPatientLists)
	lists.POST("", h.CreatePatientList)
	lists.GET("/:uuid", h.GetPatientList)
	lists.PUT("/:uuid", h.UpdatePatientList)
	lists.DELETE("/:uuid", h.DeletePatientList)
	lists.GET("/:uuid/encounters", h.GetEncounters)
	lists.GET("/:uuid/patients", h.GetPatients)

	e.GET("/v1/criteria", h.ParseCriteria)
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": healthStatusHealthy})
}

type errorResponse struct {
	Error string   `json:"error"`
	Path  []string `json:"path,omitempty"`
}

// fail maps domain errors to status codes. Only unexpected errors are logged.
func (h *Handler) fail(c echo.Context, err error) error {
	var cycleErr *patientlist.CyclicReferenceError

	switch {
	case errors.As(err, &cycleErr):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: patientlist.ErrCyclicReference.Error(), Path: cycleErr.Path})
	case errors.Is(err, patientlist.ErrMaxDepthExceeded):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: patientlist.ErrMaxDepthExceeded.Error()})
	case errors.Is(err, patientlist.ErrPatientListNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: patientlist.ErrPatientListNotFound.Error()})
	case errors.Is(err, patientlist.ErrPatientListExists):
		return c.JSON(http.StatusConflict, errorResponse{Error: patientlist.ErrPatientListExists.Error()})
	default:
		h.logger.ErrorContext(
			c.Request().Context(),
			logMsgRequestFailed,
			logAttrMethod, c.Request().Method,
			logAttrURI, c.Request().RequestURI,
			logAttrError, err.Error(),
		)

		return c.JSON(http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
