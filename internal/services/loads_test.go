package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/geo"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/geocoding"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dallas  = geo.Point{Lat: 32.7767, Lng: -96.7970}
	fortW   = geo.Point{Lat: 32.7555, Lng: -97.3308}
	atlanta = geo.Point{Lat: 33.7490, Lng: -84.3880}
	chicago = geo.Point{Lat: 41.8781, Lng: -87.6298}
)

type stubGeocoder struct {
	points map[string]geo.Point
	err    error
}

func (g *stubGeocoder) Geocode(ctx context.Context, query string) (geo.Point, error) {
	if g.err != nil {
		return geo.Point{}, g.err
	}
	p, ok := g.points[query]
	if !ok {
		return geo.Point{}, geocoding.ErrNotFound
	}
	return p, nil
}

func newStubGeocoder() *stubGeocoder {
	return &stubGeocoder{points: map[string]geo.Point{
		"Dallas, TX":  dallas,
		"Atlanta, GA": atlanta,
		"Chicago, IL": chicago,
	}}
}

// recordingLoads wraps a load repository and remembers every query it served.
type recordingLoads struct {
	inner   models.LoadRepository
	queries []models.LoadQuery
	err     error
}

func (r *recordingLoads) FindMatching(ctx context.Context, query models.LoadQuery) ([]models.Load, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	return r.inner.FindMatching(ctx, query)
}

func (r *recordingLoads) Save(ctx context.Context, load *models.Load) error {
	return r.inner.Save(ctx, load)
}

func fp(v float64) *float64 { return &v }

func saveLoad(t *testing.T, repo models.LoadRepository, equipment string, origin, destination geo.Point, pickup *time.Time) *models.Load {
	t.Helper()
	load := &models.Load{
		OriginCity:      "Origin",
		DestinationCity: "Destination",
		EquipmentType:   equipment,
		OriginLat:       fp(origin.Lat),
		OriginLng:       fp(origin.Lng),
		DestinationLat:  fp(destination.Lat),
		DestinationLng:  fp(destination.Lng),
		PickupDatetime:  pickup,
	}
	require.NoError(t, repo.Save(context.Background(), load))
	return load
}

func newLoadService(geocoder geocoding.Geocoder, loads models.LoadRepository) *LoadService {
	return NewLoadService(geocoder, loads, 100, 3, logrus.New())
}

func TestParsePickupDatetime(t *testing.T) {
	want := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  *time.Time
		err   bool
	}{
		{"", nil, false},
		{"   ", nil, false},
		{"2025-03-14T09:30:00Z", &want, false},
		{"2025-03-14T04:30:00-05:00", &want, false},
		{"2025-03-14T09:30:00.000Z", &want, false},
		{"2025-03-14T09:30:00", &want, false},
		{"2025-03-14T09:30", &want, false},
		{"2025-03-14 09:30:00", &want, false},
		{"2025-03-14 09:30:00.000", &want, false},
		{"2025-03-14 09:30", &want, false},
		{"2025-03-14 04:30:00-05:00", &want, false},
		{"2025-03-14 09:30:00Z", &want, false},
		{"2025-03-14T10:30+01:00", &want, false},
		{"2025-03-14 10:30+01:00", &want, false},
		{"2025-03-14T09:30:00.000", &want, false},
		{"tomorrow morning", nil, true},
		{"14/03/2025", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePickupDatetime(tt.input)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidPickupDatetime)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	day, err := ParsePickupDatetime("2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), *day)
}

func TestFindMatchingLoads_OriginOnly(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	for i := 0; i < 5; i++ {
		saveLoad(t, repo, "dryvan", fortW, atlanta, nil)
	}
	saveLoad(t, repo, "dryvan", chicago, atlanta, nil)
	saveLoad(t, repo, "reefer", dallas, atlanta, nil)

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType: "Dry Van",
		Origin:        "Dallas, TX",
	})
	require.NoError(t, err)

	assert.Len(t, result.Loads, 3)
	assert.Empty(t, result.OmittedParameters)
	assert.NotNil(t, result.OmittedParameters)
	for _, load := range result.Loads {
		assert.Equal(t, "dryvan", load.EquipmentType)
	}

	require.Len(t, repo.queries, 1)
	q := repo.queries[0]
	assert.Equal(t, "dryvan", q.EquipmentType)
	assert.Equal(t, 3, q.Limit)
	assert.Nil(t, q.Destination)
	assert.Nil(t, q.PickupAt)
	wantBox, err := geo.NewBoundingBox(dallas, 100)
	require.NoError(t, err)
	assert.Equal(t, wantBox, q.Origin)
}

func TestFindMatchingLoads_AllFiltersMatch(t *testing.T) {
	pickup := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	saveLoad(t, repo, "dryvan", dallas, atlanta, &pickup)

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType:  "dryvan",
		Origin:         "Dallas, TX",
		Destination:    "Atlanta, GA",
		PickupDatetime: "2025-03-14T09:00:00",
	})
	require.NoError(t, err)
	assert.Len(t, result.Loads, 1)
	assert.Equal(t, []string{}, result.OmittedParameters)
	assert.Len(t, repo.queries, 1)
}

func TestFindMatchingLoads_DropsPickupFirst(t *testing.T) {
	pickup := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	saveLoad(t, repo, "dryvan", dallas, atlanta, &pickup)

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType:  "dryvan",
		Origin:         "Dallas, TX",
		Destination:    "Atlanta, GA",
		PickupDatetime: "2025-03-20T09:00:00Z",
	})
	require.NoError(t, err)

	assert.Len(t, result.Loads, 1)
	assert.Equal(t, []string{"pickup_datetime"}, result.OmittedParameters)
	require.Len(t, repo.queries, 2)
	assert.NotNil(t, repo.queries[1].Destination)
	assert.Nil(t, repo.queries[1].PickupAt)
}

func TestFindMatchingLoads_DropsDestinationAndPickup(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	saveLoad(t, repo, "dryvan", dallas, chicago, nil)

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType:  "dryvan",
		Origin:         "Dallas, TX",
		Destination:    "Atlanta, GA",
		PickupDatetime: "2025-03-20",
	})
	require.NoError(t, err)

	assert.Len(t, result.Loads, 1)
	assert.Equal(t, []string{"destination", "pickup_datetime"}, result.OmittedParameters)
	require.Len(t, repo.queries, 3)
	assert.Nil(t, repo.queries[2].Destination)
	assert.Nil(t, repo.queries[2].PickupAt)
}

func TestFindMatchingLoads_DropsDestinationOnly(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	saveLoad(t, repo, "flatbed", dallas, chicago, nil)

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType: "Flatbed",
		Origin:        "Dallas, TX",
		Destination:   "Atlanta, GA",
	})
	require.NoError(t, err)

	assert.Len(t, result.Loads, 1)
	assert.Equal(t, []string{"destination"}, result.OmittedParameters)
	assert.Len(t, repo.queries, 2)
}

func TestFindMatchingLoads_PickupWithoutDestination(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	saveLoad(t, repo, "dryvan", dallas, chicago, nil)

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType:  "dryvan",
		Origin:         "Dallas, TX",
		PickupDatetime: "2025-03-20T08:00",
	})
	require.NoError(t, err)

	assert.Len(t, result.Loads, 1)
	assert.Equal(t, []string{"pickup_datetime"}, result.OmittedParameters)
	assert.Len(t, repo.queries, 2)
}

func TestFindMatchingLoads_NothingAnywhere(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	saveLoad(t, repo, "reefer", dallas, atlanta, nil)

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType:  "dryvan",
		Origin:         "Dallas, TX",
		Destination:    "Atlanta, GA",
		PickupDatetime: "2025-03-20",
	})
	require.NoError(t, err)

	assert.Empty(t, result.Loads)
	assert.Equal(t, []string{}, result.OmittedParameters)
	assert.Len(t, repo.queries, 3)
}

func TestFindMatchingLoads_UnresolvedOriginSkipsStore(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	saveLoad(t, repo, "dryvan", dallas, atlanta, nil)

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType: "dryvan",
		Origin:        "Atlantis",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Loads)
	assert.Empty(t, result.OmittedParameters)
	assert.Empty(t, repo.queries)
}

func TestFindMatchingLoads_UnresolvedDestinationSkipsStore(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	saveLoad(t, repo, "dryvan", dallas, atlanta, nil)

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType: "dryvan",
		Origin:        "Dallas, TX",
		Destination:   "Nowhere",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Loads)
	assert.Empty(t, repo.queries)
}

func TestFindMatchingLoads_GeocoderErrorIsEmpty(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	geocoder := &stubGeocoder{err: errors.New("provider timeout")}

	result, err := newLoadService(geocoder, repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType: "dryvan",
		Origin:        "Dallas, TX",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Loads)
	assert.Empty(t, repo.queries)
}

func TestFindMatchingLoads_PolarOriginIsEmpty(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}
	geocoder := &stubGeocoder{points: map[string]geo.Point{"North Pole": {Lat: 90, Lng: 0}}}

	result, err := newLoadService(geocoder, repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType: "dryvan",
		Origin:        "North Pole",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Loads)
	assert.Empty(t, repo.queries)
}

func TestFindMatchingLoads_StoreErrorIsEmpty(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository(), err: errors.New("connection reset")}

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType:  "dryvan",
		Origin:         "Dallas, TX",
		Destination:    "Atlanta, GA",
		PickupDatetime: "2025-03-20",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Loads)
	assert.Equal(t, []string{}, result.OmittedParameters)
	assert.Len(t, repo.queries, 1)
}

// scriptedLoads answers each FindMatching call with the next scripted step.
type scriptedLoads struct {
	steps   []scriptedStep
	queries []models.LoadQuery
}

type scriptedStep struct {
	loads []models.Load
	err   error
}

func (r *scriptedLoads) FindMatching(ctx context.Context, query models.LoadQuery) ([]models.Load, error) {
	r.queries = append(r.queries, query)
	if len(r.queries) > len(r.steps) {
		return nil, errors.New("unexpected query")
	}
	step := r.steps[len(r.queries)-1]
	return step.loads, step.err
}

func (r *scriptedLoads) Save(ctx context.Context, load *models.Load) error {
	return nil
}

func TestFindMatchingLoads_StoreErrorAfterRelaxingIsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		criteria LoadSearchCriteria
	}{
		{
			name: "pickup only",
			criteria: LoadSearchCriteria{
				EquipmentType:  "dryvan",
				Origin:         "Dallas, TX",
				PickupDatetime: "2025-03-20",
			},
		},
		{
			name: "destination and pickup",
			criteria: LoadSearchCriteria{
				EquipmentType:  "dryvan",
				Origin:         "Dallas, TX",
				Destination:    "Atlanta, GA",
				PickupDatetime: "2025-03-20",
			},
		},
		{
			name: "destination only",
			criteria: LoadSearchCriteria{
				EquipmentType: "dryvan",
				Origin:        "Dallas, TX",
				Destination:   "Atlanta, GA",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &scriptedLoads{steps: []scriptedStep{
				{loads: []models.Load{}},
				{err: errors.New("connection reset")},
			}}

			result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), tt.criteria)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, []models.Load{}, result.Loads)
			assert.Equal(t, []string{}, result.OmittedParameters)
			require.Len(t, repo.queries, 2)
			assert.Equal(t, tt.criteria.Destination != "", repo.queries[0].Destination != nil)
			assert.Equal(t, tt.criteria.PickupDatetime != "", repo.queries[0].PickupAt != nil)
		})
	}
}

func TestFindMatchingLoads_InvalidPickup(t *testing.T) {
	repo := &recordingLoads{inner: repository.NewMemoryLoadRepository()}

	result, err := newLoadService(newStubGeocoder(), repo).FindMatchingLoads(context.Background(), LoadSearchCriteria{
		EquipmentType:  "dryvan",
		Origin:         "Dallas, TX",
		PickupDatetime: "next tuesday",
	})
	assert.ErrorIs(t, err, ErrInvalidPickupDatetime)
	assert.Nil(t, result)
	assert.Empty(t, repo.queries)
}
