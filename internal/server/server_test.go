package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/geoatlas/internal/catalog/domain"
	"github.com/smallbiznis/geoatlas/internal/config"
	"github.com/smallbiznis/geoatlas/internal/geo"
	ledgerdomain "github.com/smallbiznis/geoatlas/internal/importledger/domain"
	"github.com/smallbiznis/geoatlas/internal/observability"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	projectiondomain "github.com/smallbiznis/geoatlas/internal/projection/domain"
	proximitydomain "github.com/smallbiznis/geoatlas/internal/proximity/domain"
	"github.com/smallbiznis/geoatlas/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProximity struct {
	last proximitydomain.Request
	err  error
}

func (f *fakeProximity) Nearby(_ context.Context, req proximitydomain.Request) (proximitydomain.Response, error) {
	f.last = req
	if f.err != nil {
		return proximitydomain.Response{}, f.err
	}
	if err := req.Center.Validate(); err != nil {
		return proximitydomain.Response{}, fmt.Errorf("%w: %w", proximitydomain.ErrInvalidCenter, err)
	}
	d := 1.5
	return proximitydomain.Response{
		Center:   req.Center,
		RadiusKm: req.RadiusKm,
		Limit:    req.Limit,
		Results: []placedomain.POI{
			{Category: placedomain.CategoryGeonames, ID: snowflake.ID(1), Name: "Nouméa", DistanceKm: &d},
		},
	}, nil
}

type fakeProjection struct {
	cities  projectiondomain.CitiesRequest
	tourist projectiondomain.TouristSitesRequest
	nearby  projectiondomain.NearbyCitiesRequest
}

func (f *fakeProjection) NearbyMajorCities(_ context.Context, req projectiondomain.NearbyCitiesRequest) (projectiondomain.Response, error) {
	f.nearby = req
	if req.RadiusKm < 0 {
		return projectiondomain.Response{}, projectiondomain.ErrInvalidRadius
	}
	return projectiondomain.Response{Results: []placedomain.POI{}}, nil
}

func (f *fakeProjection) MajorTouristSites(_ context.Context, req projectiondomain.TouristSitesRequest) (projectiondomain.Response, error) {
	f.tourist = req
	return projectiondomain.Response{Results: []placedomain.POI{}}, nil
}

func (f *fakeProjection) MajorCities(_ context.Context, req projectiondomain.CitiesRequest) (projectiondomain.Response, error) {
	f.cities = req
	if req.Country == "ZZZ" {
		return projectiondomain.Response{}, projectiondomain.ErrInvalidCountry
	}
	return projectiondomain.Response{Results: []placedomain.POI{}}, nil
}

type fakeCatalog struct {
	postal catalogdomain.PostalLookupRequest
	err    error
}

func (f *fakeCatalog) CulturalSites(context.Context, catalogdomain.CulturalSitesRequest) (catalogdomain.CulturalSitesResponse, error) {
	return catalogdomain.CulturalSitesResponse{}, f.err
}

func (f *fakeCatalog) PostalLookup(_ context.Context, req catalogdomain.PostalLookupRequest) (catalogdomain.PostalLookupResponse, error) {
	f.postal = req
	return catalogdomain.PostalLookupResponse{Country: req.Country, PostalCode: req.PostalCode}, f.err
}

type fakeLedger struct {
	ledgerdomain.Service
	list ledgerdomain.ListRequest
}

func (f *fakeLedger) List(_ context.Context, req ledgerdomain.ListRequest) (ledgerdomain.ListResponse, error) {
	f.list = req
	if req.Status == "bogus" {
		return ledgerdomain.ListResponse{}, ledgerdomain.ErrInvalidStatus
	}
	return ledgerdomain.ListResponse{Entries: []ledgerdomain.Entry{}}, nil
}

func (f *fakeLedger) HasImported(context.Context, placedomain.Category, string) (bool, error) {
	return true, nil
}

type harness struct {
	engine     *gin.Engine
	proximity  *fakeProximity
	projection *fakeProjection
	catalog    *fakeCatalog
	ledger     *fakeLedger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		engine:     NewEngine(observability.Config{Environment: "test"}, nil),
		proximity:  &fakeProximity{},
		projection: &fakeProjection{},
		catalog:    &fakeCatalog{},
		ledger:     &fakeLedger{},
	}
	srv := NewServer(ServerParams{
		Gin:           h.engine,
		Cfg:           config.Config{},
		Log:           zap.NewNop(),
		ProximitySvc:  h.proximity,
		ProjectionSvc: h.projection,
		CatalogSvc:    h.catalog,
		LedgerSvc:     h.ledger,
	})
	srv.RegisterAPIRoutes()
	return h
}

func (h *harness) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.engine.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func errorCode(t *testing.T, body map[string]any) (string, string) {
	t.Helper()
	payload, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error payload: %v", body)
	errType, _ := payload["type"].(string)
	var code string
	if list, ok := payload["errors"].([]any); ok && len(list) > 0 {
		code, _ = list[0].(map[string]any)["code"].(string)
	}
	return errType, code
}

func TestNearbyRoute(t *testing.T) {
	h := newHarness(t)

	rec, body := h.get(t, "/v1/nearby?lat=-22.27&lon=166.44&radius_km=10&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, geo.Coordinate{Latitude: -22.27, Longitude: 166.44}, h.proximity.last.Center)
	assert.Equal(t, 10.0, h.proximity.last.RadiusKm)
	assert.Equal(t, 5, h.proximity.last.Limit)
	results, ok := body["results"].([]any)
	require.True(t, ok)
	assert.Len(t, results, 1)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestNearbyRouteValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name     string
		path     string
		wantCode string
	}{
		{"missing lat", "/v1/nearby?lon=1&radius_km=1", "invalid_lat"},
		{"bad lon", "/v1/nearby?lat=1&lon=east&radius_km=1", "invalid_lon"},
		{"missing radius", "/v1/nearby?lat=1&lon=1", "invalid_radius_km"},
		{"nan radius", "/v1/nearby?lat=1&lon=1&radius_km=NaN", "invalid_radius_km"},
		{"inf radius", "/v1/nearby?lat=1&lon=1&radius_km=Inf", "invalid_radius_km"},
		{"negative inf radius", "/v1/nearby?lat=1&lon=1&radius_km=-Inf", "invalid_radius_km"},
		{"nan lat", "/v1/nearby?lat=NaN&lon=1&radius_km=1", "invalid_lat"},
		{"bad limit", "/v1/nearby?lat=1&lon=1&radius_km=1&limit=ten", "invalid_limit"},
		{"out of range", "/v1/nearby?lat=95&lon=1&radius_km=1", "invalid_center"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := h.get(t, tt.path)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			errType, code := errorCode(t, body)
			assert.Equal(t, "validation_error", errType)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestStorageUnavailableMapsTo503(t *testing.T) {
	h := newHarness(t)
	h.proximity.err = fmt.Errorf("%w: %w", db.ErrStorageUnavailable, errors.New("connection refused"))

	rec, body := h.get(t, "/v1/nearby?lat=1&lon=1&radius_km=1")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	errType, _ := errorCode(t, body)
	assert.Equal(t, "storage_unavailable", errType)
}

func TestUnexpectedErrorMapsTo500(t *testing.T) {
	h := newHarness(t)
	h.catalog.err = errors.New("boom")

	rec, body := h.get(t, "/v1/sites/cultural")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errType, _ := errorCode(t, body)
	assert.Equal(t, "internal_error", errType)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestProjectionRoutes(t *testing.T) {
	h := newHarness(t)

	rec, _ := h.get(t, "/v1/cities/major?country=fr&min_population=5000&limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, h.projection.cities.MinPopulation)
	assert.EqualValues(t, 5000, *h.projection.cities.MinPopulation)
	assert.Equal(t, "fr", h.projection.cities.Country)
	assert.Equal(t, 3, h.projection.cities.Limit)

	rec, _ = h.get(t, "/v1/cities/major")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, h.projection.cities.MinPopulation)

	rec, body := h.get(t, "/v1/cities/major?country=ZZZ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, code := errorCode(t, body)
	assert.Equal(t, "invalid_country", code)

	rec, _ = h.get(t, "/v1/sites/tourist?country=IT&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, projectiondomain.TouristSitesRequest{Country: "IT", Limit: 10}, h.projection.tourist)
}

func TestNearbyCitiesRoute(t *testing.T) {
	h := newHarness(t)

	rec, _ := h.get(t, "/v1/cities/nearby?lat=-22.27&lon=166.44&radius_km=40&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, projectiondomain.NearbyCitiesRequest{
		Center:   geo.Coordinate{Latitude: -22.27, Longitude: 166.44},
		RadiusKm: 40,
		Limit:    5,
	}, h.projection.nearby)

	tests := []struct {
		name     string
		path     string
		wantCode string
		field    string
	}{
		{"negative radius", "/v1/cities/nearby?lat=1&lon=1&radius_km=-1", "invalid_radius", "radius_km"},
		{"nan radius", "/v1/cities/nearby?lat=1&lon=1&radius_km=NaN", "invalid_radius_km", "radius_km"},
		{"inf radius", "/v1/cities/nearby?lat=1&lon=1&radius_km=Inf", "invalid_radius_km", "radius_km"},
		{"missing lon", "/v1/cities/nearby?lat=1&radius_km=1", "invalid_lon", "lon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := h.get(t, tt.path)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			errType, code := errorCode(t, body)
			assert.Equal(t, "validation_error", errType)
			assert.Equal(t, tt.wantCode, code)
			errs := body["error"].(map[string]any)["errors"].([]any)
			assert.Equal(t, tt.field, errs[0].(map[string]any)["field"])
		})
	}
}

func TestPostalRoute(t *testing.T) {
	h := newHarness(t)

	rec, body := h.get(t, "/v1/postal/FR/01400")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalogdomain.PostalLookupRequest{Country: "FR", PostalCode: "01400"}, h.catalog.postal)
	assert.Equal(t, "01400", body["postal_code"])
}

func TestImportsRoutes(t *testing.T) {
	h := newHarness(t)

	rec, _ := h.get(t, "/v1/imports?category=postal&country=&status=completed&page_size=10&start_at=2025-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, h.ledger.list.Country)
	assert.Equal(t, "", *h.ledger.list.Country)
	assert.Equal(t, 10, h.ledger.list.PageSize)
	require.NotNil(t, h.ledger.list.StartAt)
	assert.Nil(t, h.ledger.list.EndAt)

	rec, _ = h.get(t, "/v1/imports")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, h.ledger.list.Country)

	rec, body := h.get(t, "/v1/imports?status=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, code := errorCode(t, body)
	assert.Equal(t, "invalid_status", code)

	rec, body = h.get(t, "/v1/imports?start_at=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, code = errorCode(t, body)
	assert.Equal(t, "invalid_start_at", code)

	rec, body = h.get(t, "/v1/imports/check?category=geonames&country=NC")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["imported"])

	rec, body = h.get(t, "/v1/imports/check?category=rivers")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, code = errorCode(t, body)
	assert.Equal(t, "unknown_category", code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec, body := h.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestMapErrorFields(t *testing.T) {
	wrapped := fmt.Errorf("%w: %w", proximitydomain.ErrInvalidCenter, geo.ErrInvalidCoordinate)
	status, payload := mapError(wrapped)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_center", payload.Errors[0].Code)
	assert.Equal(t, "lat,lon", payload.Errors[0].Field)

	errType, code := classifyErrorForLog(db.ErrStorageUnavailable)
	assert.Equal(t, "storage_unavailable", errType)
	assert.Equal(t, "storage_unavailable", code)

	status, _ = mapError(ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestParseRequiredFloat(t *testing.T) {
	v, err := parseRequiredFloat(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	for _, raw := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "infinity"} {
		_, err = parseRequiredFloat(raw)
		assert.ErrorIs(t, err, errNonFinite, raw)
	}

	_, err = parseRequiredFloat("")
	assert.ErrorIs(t, err, errMissingValue)
}
