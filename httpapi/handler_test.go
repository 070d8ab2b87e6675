package httpapi_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/httpapi"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/inmemory"
	"github.com/AntonStoeckl/dynamic-patient-lists-go/testutil/spies"
)

type fixture struct {
	lists      *inmemory.ListStore
	encounters *inmemory.EncounterStore
	server     *echo.Echo
	logs       *spies.LogHandlerSpy
}

func at(days int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

func givenServer(t *testing.T, options ...patientlist.Option) fixture {
	t.Helper()

	f := fixture{
		lists: inmemory.NewListStore(),
		encounters: inmemory.NewEncounterStore(
			patientlist.Encounter{ID: 1, UUID: "a5", PatientID: "A", EncounterTypeID: "T1", OccurredAt: at(5)},
			patientlist.Encounter{ID: 2, UUID: "b10", PatientID: "B", EncounterTypeID: "T1", OccurredAt: at(10)},
			patientlist.Encounter{ID: 3, UUID: "a8", PatientID: "A", EncounterTypeID: "T2", OccurredAt: at(8)},
		),
		logs: spies.NewLogHandlerSpy(false),
	}

	resolver, err := patientlist.NewResolver(f.lists, f.encounters, options...)
	require.NoError(t, err)

	f.server = httpapi.NewServer(httpapi.NewHandler(f.lists, resolver, slog.New(f.logs)))

	return f
}

func (f fixture) givenList(t *testing.T, list patientlist.PatientList) patientlist.PatientList {
	t.Helper()

	saved, err := f.lists.Save(context.Background(), list)
	require.NoError(t, err, "error in arranging test data")

	return saved
}

func (f fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())

	return v
}

func Test_Health(t *testing.T) {
	f := givenServer(t)

	rec := f.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "healthy"}, decode[map[string]string](t, rec))
	assert.True(t, f.logs.HasLog(slog.LevelInfo, "http request"))
}

func Test_CreatePatientList(t *testing.T) {
	f := givenServer(t)

	rec := f.do(http.MethodPost, "/v1/patientlists", `{"name":" Malaria ","searchQuery":"?encounterType=T1"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[httpapi.PatientListResponse](t, rec)
	assert.NotEmpty(t, created.UUID)
	assert.Equal(t, "Malaria", created.Name)
	assert.False(t, created.DateCreated.IsZero())

	stored, err := f.lists.GetByUUID(context.Background(), created.UUID)
	require.NoError(t, err)
	assert.Equal(t, "?encounterType=T1", stored.SearchQuery)
}

func Test_CreatePatientList_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "missing name", body: `{"searchQuery":"?encounterType=T1"}`, wantCode: http.StatusBadRequest},
		{name: "invalid json", body: `{"name":`, wantCode: http.StatusBadRequest},
		{name: "duplicate uuid", body: `{"uuid":"L1","name":"again"}`, wantCode: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := givenServer(t)
			f.givenList(t, patientlist.PatientList{UUID: "L1", Name: "first"})

			rec := f.do(http.MethodPost, "/v1/patientlists", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func Test_ListPatientLists_Filters(t *testing.T) {
	f := givenServer(t)
	f.givenList(t, patientlist.PatientList{UUID: "L1", Name: "malaria", SearchQuery: "?encounterType=T1"})
	f.givenList(t, patientlist.PatientList{UUID: "L2", Name: "old", SearchQuery: "?encounterType=T2", Retired: true})

	uuids := func(rec *httptest.ResponseRecorder) []string {
		body := decode[map[string][]httpapi.PatientListResponse](t, rec)
		result := make([]string, 0)
		for _, l := range body["patientLists"] {
			result = append(result, l.UUID)
		}

		return result
	}

	tests := []struct {
		target string
		want   []string
	}{
		{target: "/v1/patientlists", want: []string{"L1"}},
		{target: "/v1/patientlists?includeRetired=true", want: []string{"L1", "L2"}},
		{target: "/v1/patientlists?name=old", want: []string{"L2"}},
		{target: "/v1/patientlists?encounterType=T1", want: []string{"L1"}},
		{target: "/v1/patientlists?encounterType=T9", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := f.do(http.MethodGet, tt.target, "")

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, uuids(rec))
		})
	}

	rec := f.do(http.MethodGet, "/v1/patientlists?includeRetired=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_GetUpdateDeletePatientList(t *testing.T) {
	f := givenServer(t)
	saved := f.givenList(t, patientlist.PatientList{UUID: "L1", Name: "before"})

	rec := f.do(http.MethodGet, "/v1/patientlists/L1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "before", decode[httpapi.PatientListResponse](t, rec).Name)

	rec = f.do(http.MethodPut, "/v1/patientlists/L1", `{"name":"after","searchQuery":"?location=W1","retired":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[httpapi.PatientListResponse](t, rec)
	assert.Equal(t, "after", updated.Name)
	assert.True(t, updated.Retired)
	assert.True(t, saved.DateCreated.Equal(updated.DateCreated))

	rec = f.do(http.MethodPut, "/v1/patientlists/missing", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/v1/patientlists/L1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/v1/patientlists/L1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/v1/patientlists/L1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_GetEncountersAndPatients(t *testing.T) {
	f := givenServer(t)
	f.givenList(t, patientlist.PatientList{UUID: "IN", Name: "in", SearchQuery: "?encounterType=T1"})
	f.givenList(t, patientlist.PatientList{UUID: "OUT", Name: "out", SearchQuery: "?encounterType=T2"})
	f.givenList(t, patientlist.PatientList{UUID: "L", Name: "combined", SearchQuery: "?inList=IN&notInList=OUT"})

	rec := f.do(http.MethodGet, "/v1/patientlists/L/encounters", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	encounters := decode[map[string][]httpapi.EncounterResponse](t, rec)["encounters"]
	require.Len(t, encounters, 1)
	assert.Equal(t, "b10", encounters[0].UUID)
	assert.True(t, at(10).Equal(encounters[0].OccurredAt))

	rec = f.do(http.MethodGet, "/v1/patientlists/IN/patients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"A", "B"}, decode[map[string][]string](t, rec)["patients"])

	rec = f.do(http.MethodGet, "/v1/patientlists/missing/patients", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_CyclicListIsUnprocessable(t *testing.T) {
	f := givenServer(t)
	f.givenList(t, patientlist.PatientList{UUID: "A", Name: "a", SearchQuery: "?inList=B"})
	f.givenList(t, patientlist.PatientList{UUID: "B", Name: "b", SearchQuery: "?notInList=A"})

	rec := f.do(http.MethodGet, "/v1/patientlists/A/patients", "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, []any{"A", "B", "A"}, body["path"])
}

func Test_TooDeepListIsUnprocessable(t *testing.T) {
	f := givenServer(t, patientlist.WithMaxDepth(1))
	f.givenList(t, patientlist.PatientList{UUID: "C", Name: "c", SearchQuery: "?encounterType=T1"})
	f.givenList(t, patientlist.PatientList{UUID: "B", Name: "b", SearchQuery: "?inList=C"})
	f.givenList(t, patientlist.PatientList{UUID: "A", Name: "a", SearchQuery: "?inList=B"})

	rec := f.do(http.MethodGet, "/v1/patientlists/A/encounters", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

type failingListStore struct {
	*inmemory.ListStore
}

func (failingListStore) GetAll(context.Context, bool) ([]patientlist.PatientList, error) {
	return nil, patientlist.ErrLoadingPatientListFailed
}

func Test_UnexpectedErrorsAreLoggedAndHidden(t *testing.T) {
	logs := spies.NewLogHandlerSpy(false)
	lists := failingListStore{ListStore: inmemory.NewListStore()}
	resolver, err := patientlist.NewResolver(lists, inmemory.NewEncounterStore())
	require.NoError(t, err)
	server := httpapi.NewServer(httpapi.NewHandler(lists, resolver, slog.New(logs)))

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/patientlists", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), patientlist.ErrLoadingPatientListFailed.Error())
	assert.True(t, logs.HasLog(slog.LevelError, "http request failed"))
}

func Test_ParseCriteria(t *testing.T) {
	f := givenServer(t)

	rec := f.do(http.MethodGet, "/v1/criteria?query="+
		"%3FencounterType%3DT1%26startDate%3D2020-01-02%26endDate%3Dnot-a-date%26inList%3DL1%2CL2", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	criteria := decode[httpapi.CriteriaResponse](t, rec)
	assert.Equal(t, "T1", criteria.EncounterType)
	require.NotNil(t, criteria.StartDate)
	assert.True(t, at(1).Equal(*criteria.StartDate))
	assert.Nil(t, criteria.EndDate)
	assert.Equal(t, []string{"L1", "L2"}, criteria.InList)
	assert.Equal(t, []string{"endDate"}, criteria.MalformedFields)
	assert.Contains(t, criteria.Normalized, "encounterType=T1")
}
