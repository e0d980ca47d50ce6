package seeder

import (
	"regexp"
	"strings"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
)

// LoadProcessor cleans fixture records before they are stored.
type LoadProcessor struct {
	multiWhitespace *regexp.Regexp
}

func NewLoadProcessor() *LoadProcessor {
	return &LoadProcessor{
		multiWhitespace: regexp.MustCompile(`\s+`),
	}
}

func (p *LoadProcessor) clean(s string) string {
	return strings.TrimSpace(p.multiWhitespace.ReplaceAllString(s, " "))
}

func (p *LoadProcessor) cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := p.clean(*s)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// NormalizeLoad trims text fields, normalizes equipment, upper-cases states and assigns an id when missing.
func (p *LoadProcessor) NormalizeLoad(load *models.Load) {
	load.AssignID()
	load.OriginCity = p.clean(load.OriginCity)
	load.DestinationCity = p.clean(load.DestinationCity)
	load.OriginState = upper(p.cleanOptional(load.OriginState))
	load.DestinationState = upper(p.cleanOptional(load.DestinationState))
	load.EquipmentType = models.NormalizeEquipmentType(p.clean(load.EquipmentType))
	load.Notes = p.cleanOptional(load.Notes)
	load.CommodityType = p.cleanOptional(load.CommodityType)
	load.Dimensions = p.cleanOptional(load.Dimensions)
	if load.PickupDatetime != nil {
		t := load.PickupDatetime.UTC()
		load.PickupDatetime = &t
	}
	if load.DeliveryDatetime != nil {
		t := load.DeliveryDatetime.UTC()
		load.DeliveryDatetime = &t
	}
}

// NormalizeCarrier trims the legal name and defaults the status to active.
func (p *LoadProcessor) NormalizeCarrier(carrier *models.Carrier) {
	carrier.LegalName = p.clean(carrier.LegalName)
	carrier.Status = strings.ToLower(p.clean(carrier.Status))
	if carrier.Status == "" {
		carrier.Status = "active"
	}
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	u := strings.ToUpper(*s)
	return &u
}
