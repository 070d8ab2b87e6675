package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
)

// EncounterResponse is the JSON form of a patientlist.Encounter.
type EncounterResponse struct {
	UUID            string              `json:"uuid"`
	PatientID       string              `json:"patientId"`
	EncounterTypeID string              `json:"encounterTypeId"`
	LocationID      string              `json:"locationId,omitempty"`
	OccurredAt      time.Time           `json:"encounterDatetime"`
	ProvidersByRole map[string][]string `json:"providersByRole,omitempty"`
	Orders          []patientlist.Order `json:"orders,omitempty"`
}

// CriteriaResponse is the JSON form of parsed patientlist.FilterCriteria.
type CriteriaResponse struct {
	EncounterType     string     `json:"encounterType,omitempty"`
	Location          string     `json:"location,omitempty"`
	StartDate         *time.Time `json:"startDate,omitempty"`
	EndDate           *time.Time `json:"endDate,omitempty"`
	InList            []string   `json:"inList,omitempty"`
	NotInList         []string   `json:"notInList,omitempty"`
	Provider          string     `json:"provider,omitempty"`
	Patient           string     `json:"patient,omitempty"`
	ContainsOrderType string     `json:"containsOrderType,omitempty"`
	MalformedFields   []string   `json:"malformedFields,omitempty"`
	Normalized        string     `json:"normalized"`
}

// NewEncounterResponses converts encounters to their JSON form.
func NewEncounterResponses(encounters patientlist.Encounters) []EncounterResponse {
	responses := make([]EncounterResponse, 0, len(encounters))
	for _, e := range encounters {
		responses = append(responses, EncounterResponse{
			UUID:            e.UUID,
			PatientID:       e.PatientID,
			EncounterTypeID: e.EncounterTypeID,
			LocationID:      e.LocationID,
			OccurredAt:      e.OccurredAt,
			ProvidersByRole: e.ProvidersByRole,
			Orders:          e.Orders,
		})
	}

	return responses
}

func toCriteriaResponse(criteria patientlist.FilterCriteria) CriteriaResponse {
	optionalTime := func(t time.Time) *time.Time {
		if t.IsZero() {
			return nil
		}

		return &t
	}

	return CriteriaResponse{
		EncounterType:     criteria.EncounterTypeRef(),
		Location:          criteria.LocationRef(),
		StartDate:         optionalTime(criteria.StartDate()),
		EndDate:           optionalTime(criteria.EndDate()),
		InList:            criteria.InListRefs(),
		NotInList:         criteria.NotInListRefs(),
		Provider:          criteria.ProviderRef(),
		Patient:           criteria.PatientRef(),
		ContainsOrderType: criteria.ContainsOrderType(),
		MalformedFields:   criteria.MalformedFields(),
		Normalized:        criteria.Encode(),
	}
}

// GetEncounters resolves the list into its encounters.
// GET /v1/patientlists/:uuid/encounters
func (h *Handler) GetEncounters(c echo.Context) error {
	ctx := c.Request().Context()

	list, err := h.lists.GetByUUID(ctx, c.Param(paramUUID))
	if err != nil {
		return h.fail(c, err)
	}

	encounters, err := h.resolver.ResolveEncounters(ctx, list)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"encounters": NewEncounterResponses(encounters)})
}

// GetPatients resolves the list into its distinct patients.
// GET /v1/patientlists/:uuid/patients
func (h *Handler) GetPatients(c echo.Context) error {
	ctx := c.Request().Context()

	list, err := h.lists.GetByUUID(ctx, c.Param(paramUUID))
	if err != nil {
		return h.fail(c, err)
	}

	patients, err := h.resolver.ResolvePatients(ctx, list)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"patients": patients})
}

// ParseCriteria returns how a search query is understood, without resolving it.
// GET /v1/criteria
func (h *Handler) ParseCriteria(c echo.Context) error {
	return c.JSON(http.StatusOK, toCriteriaResponse(h.resolver.Parse(c.QueryParam(queryCriteria))))
}
