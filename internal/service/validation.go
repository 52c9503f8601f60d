package service

import (
	"strings"
	"time"

	"example.com/backstage/services/tenders/internal/apperrors"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

// validateStruct runs the struct tags of v and reports the first failures as a validation error
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Validation("%s", err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+" failed '"+fe.Tag()+"'")
	}
	return apperrors.Validation("Invalid request: %s", strings.Join(msgs, "; "))
}

// ValidatePublishDates checks the publication window against now
func ValidatePublishDates(dates PublishDates, now time.Time) error {
	if err := validateStruct(dates); err != nil {
		return err
	}
	end := *dates.EndDate
	if !end.After(now) {
		return apperrors.Validation("End date %s must be in the future", end.Format(time.RFC3339))
	}
	if dates.StartDate != nil && !end.After(*dates.StartDate) {
		return apperrors.Validation("End date %s must be after start date %s",
			end.Format(time.RFC3339), dates.StartDate.Format(time.RFC3339))
	}
	return nil
}
