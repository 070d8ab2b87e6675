package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

// PatientListRequest is the body of create and update requests.
type PatientListRequest struct {
	UUID        string `json:"uuid,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SearchQuery string `json:"searchQuery"`
	Retired     bool   `json:"retired,omitempty"`
}

// PatientListResponse is the JSON form of a patientlist.PatientList.
type PatientListResponse struct {
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SearchQuery string    `json:"searchQuery"`
	Retired     bool      `json:"retired"`
	DateCreated time.Time `json:"dateCreated"`
}

func toPatientListResponse(list patientlist.PatientList) PatientListResponse {
	return PatientListResponse{
		UUID:        list.UUID,
		Name:        list.Name,
		Description: list.Description,
		SearchQuery: list.SearchQuery,
		Retired:     list.Retired,
		DateCreated: list.DateCreated,
	}
}

func toPatientListResponses(lists []patientlist.PatientList) []PatientListResponse {
	responses := make([]PatientListResponse, 0, len(lists))
	for _, list := range lists {
		responses = append(responses, toPatientListResponse(list))
	}

	return responses
}

// bindPatientList returns the request or the reason it was rejected.
func bindPatientList(c echo.Context) (PatientListRequest, string) {
	var req PatientListRequest
	if err := c.Bind(&req); err != nil {
		return PatientListRequest{}, "invalid request body"
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return PatientListRequest{}, "name is required"
	}

	return req, ""
}

// ListPatientLists returns lists filtered by name or encounter type, or all lists.
// GET /v1/patientlists
func (h *Handler) ListPatientLists(c echo.Context) error {
	ctx := c.Request().Context()

	var lists []patientlist.PatientList
	var err error

	switch {
	case c.QueryParam(queryName) != "":
		lists, err = h.lists.GetByName(ctx, c.QueryParam(queryName))
	case c.QueryParam(queryEncounterType) != "":
		lists, err = h.lists.GetByEncounterType(ctx, c.QueryParam(queryEncounterType))
	default:
		includeRetired := false
		if raw := c.QueryParam(queryIncludeRetired); raw != "" {
			if includeRetired, err = strconv.ParseBool(raw); err != nil {
				return badRequest(c, "includeRetired must be a boolean")
			}
		}

		lists, err = h.lists.GetAll(ctx, includeRetired)
	}

	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"patientLists": toPatientListResponses(lists)})
}

// CreatePatientList stores a new list.
// POST /v1/patientlists
func (h *Handler) CreatePatientList(c echo.Context) error {
	req, rejection := bindPatientList(c)
	if rejection != "" {
		return badRequest(c, rejection)
	}

	saved, err := h.lists.Save(c.Request().Context(), patientlist.PatientList{
		UUID:        req.UUID,
		Name:        req.Name,
		Description: req.Description,
		SearchQuery: req.SearchQuery,
		Retired:     req.Retired,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusCreated, toPatientListResponse(saved))
}

// GetPatientList returns a single list.
// GET /v1/patientlists/:uuid
func (h *Handler) GetPatientList(c echo.Context) error {
	list, err := h.lists.GetByUUID(c.Request().Context(), c.Param(paramUUID))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, toPatientListResponse(list))
}

// UpdatePatientList replaces name, description, search query and retired flag of a list.
// PUT /v1/patientlists/:uuid
func (h *Handler) UpdatePatientList(c echo.Context) error {
	req, rejection := bindPatientList(c)
	if rejection != "" {
		return badRequest(c, rejection)
	}

	updated, err := h.lists.Update(c.Request().Context(), patientlist.PatientList{
		UUID:        c.Param(paramUUID),
		Name:        req.Name,
		Description: req.Description,
		SearchQuery: req.SearchQuery,
		Retired:     req.Retired,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, toPatientListResponse(updated))
}

// DeletePatientList removes a list. Lists referencing it keep resolving; the reference contributes nothing.
// DELETE /v1/patientlists/:uuid
func (h *Handler) DeletePatientList(c echo.Context) error {
	if err := h.lists.Delete(c.Request().Context(), patientlist.PatientList{UUID: c.Param(paramUUID)}); err != nil {
		return h.fail(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
