package models

// GORM models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/geo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Load is a row of the load board. The service filters and returns loads, it never edits them.
type Load struct {
	LoadID           string     `json:"load_id" gorm:"column:load_id;type:uuid;primaryKey"`
	OriginCity       string     `json:"origin_city" gorm:"not null"`
	OriginState      *string    `json:"origin_state,omitempty"`
	DestinationCity  string     `json:"destination_city" gorm:"not null"`
	DestinationState *string    `json:"destination_state,omitempty"`
	PickupDatetime   *time.Time `json:"pickup_datetime,omitempty" gorm:"type:timestamptz;index"`
	DeliveryDatetime *time.Time `json:"delivery_datetime,omitempty" gorm:"type:timestamptz"`
	EquipmentType    string     `json:"equipment_type" gorm:"not null;index:idx_loads_equipment_origin,priority:1"`
	LoadboardRate    *float64   `json:"loadboard_rate,omitempty" gorm:"type:numeric"`
	Notes            *string    `json:"notes,omitempty"`
	Weight           *float64   `json:"weight,omitempty" gorm:"type:numeric"`
	CommodityType    *string    `json:"commodity_type,omitempty"`
	NumOfPieces      *int       `json:"num_of_pieces,omitempty"`
	Miles            *float64   `json:"miles,omitempty" gorm:"type:numeric"`
	Dimensions       *string    `json:"dimensions,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"type:timestamptz;autoCreateTime"`
	OriginLat        *float64   `json:"origin_lat,omitempty" gorm:"index:idx_loads_equipment_origin,priority:2"`
	OriginLng        *float64   `json:"origin_lng,omitempty" gorm:"index:idx_loads_equipment_origin,priority:3"`
	DestinationLat   *float64   `json:"destination_lat,omitempty"`
	DestinationLng   *float64   `json:"destination_lng,omitempty"`
}

// Carrier is a registered motor carrier keyed by its numeric MC number.
type Carrier struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MCNumber  int64     `json:"mc_number" gorm:"uniqueIndex;not null"`
	DOTNumber *int64    `json:"dot_number,omitempty"`
	LegalName string    `json:"legal_name"`
	Status    string    `json:"status" gorm:"default:'active'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CallMetric is the recorded outcome of one agent call.
type CallMetric struct {
	ID                     string    `json:"id" gorm:"type:uuid;primaryKey"`
	RunID                  *string   `json:"run_id,omitempty" gorm:"index"`
	OrgID                  *string   `json:"org_id,omitempty"`
	CarrierMC              *string   `json:"carrier_mc,omitempty"`
	LoadID                 *string   `json:"load_id,omitempty"`
	Outcome                string    `json:"outcome" gorm:"not null"`
	Sentiment              *string   `json:"sentiment,omitempty"`
	CarrierInitialOffer    *float64  `json:"carrier_initial_offer,omitempty" gorm:"type:numeric"`
	LoadAgreedRate         *float64  `json:"load_agreed_rate,omitempty" gorm:"type:numeric"`
	LoadLoadboardRate      *float64  `json:"load_loadboard_rate,omitempty" gorm:"type:numeric"`
	NegotiationAttempts    *int      `json:"negotiation_attempts,omitempty"`
	NegotiationPerformance *float64  `json:"negotiation_performance,omitempty" gorm:"type:numeric"`
	RateDifference         *float64  `json:"rate_difference,omitempty" gorm:"type:numeric"`
	CallStatus             *string   `json:"call_status,omitempty" gorm:"index"`
	CallDuration           *float64  `json:"call_duration,omitempty"`
	Notes                  *string   `json:"notes,omitempty"`
	CreatedAt              time.Time `json:"created_at" gorm:"type:timestamptz"`
	UpdatedAt              time.Time `json:"updated_at" gorm:"type:timestamptz"`
}

// ErrNotFound is returned by repositories when an update targets a missing row.
var ErrNotFound = errors.New("record not found")

// Run statuses reported by the run-status API that matter to the refresh pass.
const (
	CallStatusRunning = "running"
)

// LoadQuery is one rung of the search ladder. Nil Destination or PickupAt means the filter is off.
type LoadQuery struct {
	EquipmentType string
	Origin        geo.BoundingBox
	Destination   *geo.BoundingBox
	PickupAt      *time.Time
	Limit         int
}

// Matches applies the query to a single load. Stores that cannot push the filter down use it.
func (q LoadQuery) Matches(load Load) bool {
	if load.EquipmentType != q.EquipmentType {
		return false
	}
	if load.OriginLat == nil || load.OriginLng == nil {
		return false
	}
	if !q.Origin.Contains(geo.Point{Lat: *load.OriginLat, Lng: *load.OriginLng}) {
		return false
	}
	if q.Destination != nil {
		if load.DestinationLat == nil || load.DestinationLng == nil {
			return false
		}
		if !q.Destination.Contains(geo.Point{Lat: *load.DestinationLat, Lng: *load.DestinationLng}) {
			return false
		}
	}
	if q.PickupAt != nil {
		if load.PickupDatetime == nil || !load.PickupDatetime.Equal(*q.PickupAt) {
			return false
		}
	}
	return true
}

// Database interfaces for repository pattern
type LoadRepository interface {
	FindMatching(ctx context.Context, query LoadQuery) ([]Load, error)
	Save(ctx context.Context, load *Load) error
}

type CarrierRepository interface {
	ExistsByMCNumber(ctx context.Context, mcNumber int64) (bool, error)
	Save(ctx context.Context, carrier *Carrier) error
}

type MetricsRepository interface {
	Create(ctx context.Context, metric *CallMetric) error
	List(ctx context.Context, limit int) ([]CallMetric, error)
	ListByCallStatus(ctx context.Context, status string) ([]CallMetric, error)
	UpdateRunStatus(ctx context.Context, id string, status *string, duration *float64) error
}

// TableName methods for custom table names
func (Load) TableName() string       { return "loads" }
func (Carrier) TableName() string    { return "carriers" }
func (CallMetric) TableName() string { return "metrics" }

// NormalizeEquipmentType lower-cases and strips spaces so "Dry Van" matches "dryvan".
func NormalizeEquipmentType(equipment string) string {
	return strings.ReplaceAll(strings.ToLower(equipment), " ", "")
}

// Model validation methods
func (l *Load) Validate() error {
	if strings.TrimSpace(l.OriginCity) == "" {
		return fmt.Errorf("origin city is required")
	}
	if strings.TrimSpace(l.DestinationCity) == "" {
		return fmt.Errorf("destination city is required")
	}
	if l.EquipmentType == "" {
		return fmt.Errorf("equipment type is required")
	}
	if (l.OriginLat == nil) != (l.OriginLng == nil) {
		return fmt.Errorf("origin coordinates must be set together")
	}
	if (l.DestinationLat == nil) != (l.DestinationLng == nil) {
		return fmt.Errorf("destination coordinates must be set together")
	}
	return nil
}

func (c *Carrier) Validate() error {
	if c.MCNumber <= 0 {
		return fmt.Errorf("mc number must be positive")
	}
	return nil
}

func (m *CallMetric) Validate() error {
	if strings.TrimSpace(m.Outcome) == "" {
		return fmt.Errorf("outcome is required")
	}
	return nil
}

// AssignID gives the load a fresh uuid when it has none.
func (l *Load) AssignID() {
	if l.LoadID == "" {
		l.LoadID = uuid.NewString()
	}
}

// AssignID gives the metric a fresh uuid when it has none.
func (m *CallMetric) AssignID() {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
}

// GORM hooks
func (l *Load) BeforeCreate(tx *gorm.DB) error {
	l.AssignID()
	return l.Validate()
}

func (c *Carrier) BeforeCreate(tx *gorm.DB) error {
	return c.Validate()
}

func (m *CallMetric) BeforeCreate(tx *gorm.DB) error {
	m.AssignID()
	return m.Validate()
}
