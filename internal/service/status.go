package service

import (
	"strings"

	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/models"
	"example.com/backstage/services/tenders/internal/sourcing"

	"github.com/pkg/errors"
)

// StatusTranslator maps remote status codes onto the unified vocabulary
type StatusTranslator struct {
	table map[string]models.TenderStatus
}

// NewStatusTranslator copies table, rejecting values outside the vocabulary
func NewStatusTranslator(table map[string]string) (*StatusTranslator, error) {
	if len(table) == 0 {
		return nil, errors.New("status map is empty")
	}
	t := &StatusTranslator{table: make(map[string]models.TenderStatus, len(table))}
	for code, value := range table {
		status := models.TenderStatus(strings.ToLower(strings.TrimSpace(value)))
		if !status.Valid() {
			return nil, errors.Errorf("status code %s maps to unknown status %q", code, value)
		}
		t.table[strings.TrimSpace(code)] = status
	}
	return t, nil
}

// Translate looks the code up. There is no fallback.
func (t *StatusTranslator) Translate(code string) (models.TenderStatus, error) {
	status, ok := t.table[code]
	if !ok {
		return "", apperrors.External(nil, "Remote status code '%s' has no tender status mapping", code)
	}
	return status, nil
}

// TranslateRfx translates the status of a fetched remote record
func (t *StatusTranslator) TranslateRfx(rfx *sourcing.Rfx) (models.TenderStatus, error) {
	code, ok := rfx.StatusCode()
	if !ok {
		return "", apperrors.External(nil, "Remote record has no status code")
	}
	return t.Translate(code)
}
