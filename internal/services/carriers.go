package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	mcNumberPattern = regexp.MustCompile(`^MC\s\d{6}$`)
	nonDigitPattern = regexp.MustCompile(`\D`)
)

// ValidateMCFormat reports whether mc is "MC" followed by one whitespace and six digits.
func ValidateMCFormat(mc string) bool {
	return mcNumberPattern.MatchString(mc)
}

type CarrierValidation struct {
	Verified bool
	Message  string
}

type CarrierService struct {
	carriers models.CarrierRepository
	logger   *logrus.Logger
}

func NewCarrierService(carriers models.CarrierRepository, logger *logrus.Logger) *CarrierService {
	return &CarrierService{
		carriers: carriers,
		logger:   logger,
	}
}

// ValidateCarrier checks the format, then the carrier table. Lookup errors count as not registered.
func (s *CarrierService) ValidateCarrier(ctx context.Context, mc string) CarrierValidation {
	log := s.logger.WithField("mc_number", mc)

	if !ValidateMCFormat(mc) {
		log.Warn("MC validation failed: invalid format")
		return CarrierValidation{
			Verified: false,
			Message:  fmt.Sprintf("MC number %s is invalid. Expected format: MC XXXXXX", mc),
		}
	}

	notRegistered := CarrierValidation{
		Verified: false,
		Message:  fmt.Sprintf("MC number %s is not registered as an active carrier", mc),
	}

	number, err := strconv.ParseInt(nonDigitPattern.ReplaceAllString(mc, ""), 10, 64)
	if err != nil {
		log.WithError(err).Error("MC number digits did not parse")
		return notRegistered
	}

	exists, err := s.carriers.ExistsByMCNumber(ctx, number)
	if err != nil {
		log.WithError(err).Error("Carrier lookup failed")
		return notRegistered
	}
	if !exists {
		log.Info("MC number not found in carrier table")
		return notRegistered
	}

	log.Info("MC validation successful")
	return CarrierValidation{
		Verified: true,
		Message:  fmt.Sprintf("MC number %s is valid", mc),
	}
}
