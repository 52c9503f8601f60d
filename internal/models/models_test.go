package models

import (
	"testing"
	"time"

	"example.com/backstage/services/tenders/internal/apperrors"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, KindPlaceholder, Classify(EventTypePlaceholder))
	assert.Equal(t, KindAssessment, Classify(EventTypeFCA))
	assert.Equal(t, KindAssessment, Classify(EventTypeDAA))
	for _, et := range []EventType{EventTypeRFI, EventTypeEOI, EventTypeDA, EventTypeFC} {
		assert.Equal(t, KindMarket, Classify(et), et)
	}
}

func TestAssignTypeOnlyOnce(t *testing.T) {
	event := &Event{EventType: EventTypePlaceholder}

	require.NoError(t, event.AssignType(EventTypeRFI))
	require.Equal(t, EventTypeRFI, event.EventType)

	err := event.AssignType(EventTypeFC)
	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.KindIllegalState))
	require.Equal(t, EventTypeRFI, event.EventType)
}

func TestAssignTypeRejectsUnknown(t *testing.T) {
	event := &Event{EventType: EventTypePlaceholder}
	err := event.AssignType(EventType("XYZ"))
	require.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestSecondAssignmentAlwaysFails(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	concrete := gen.OneConstOf(
		EventTypeRFI, EventTypeEOI, EventTypeDA, EventTypeFC, EventTypeFCA, EventTypeDAA,
	)

	properties.Property("placeholder -> X -> Y fails with illegal state", prop.ForAll(
		func(first, second EventType) bool {
			event := &Event{EventType: EventTypePlaceholder}
			if err := event.AssignType(first); err != nil {
				return false
			}
			err := event.AssignType(second)
			return apperrors.Is(err, apperrors.KindIllegalState) && event.EventType == first
		},
		concrete, concrete,
	))

	properties.TestingRun(t)
}

func TestSelectionsMatchByOrganisationID(t *testing.T) {
	now := time.Now()
	event := &Event{ID: 4}

	require.True(t, event.AddSelection(&OrganisationMapping{ID: 1, OrganisationID: "GB-COH-1"}, "buyer", now))
	// same organisation via a different mapping row is still a duplicate
	require.False(t, event.AddSelection(&OrganisationMapping{ID: 9, OrganisationID: "GB-COH-1"}, "buyer", now))
	require.True(t, event.AddSelection(&OrganisationMapping{ID: 2, OrganisationID: "GB-COH-2"}, "buyer", now))
	require.Len(t, event.SupplierSelections, 2)

	removed := event.RemoveSelection("GB-COH-1")
	require.NotNil(t, removed)
	require.Equal(t, uint(1), removed.OrganisationMappingID)
	require.Len(t, event.SupplierSelections, 1)
	require.Nil(t, event.RemoveSelection("GB-COH-1"))
}

func TestPublicIDRoundTrip(t *testing.T) {
	event := &Event{ID: 12, OCDSAuthorityName: "ocds", OCIDPrefix: "b5fd17"}
	require.Equal(t, "ocds-b5fd17-12", event.PublicID())

	id, err := ParseEventID(event.PublicID())
	require.NoError(t, err)
	require.True(t, id.Matches(event))

	other, err := ParseEventID("ocds-aaaaaa-12")
	require.NoError(t, err)
	require.False(t, other.Matches(event))

	for _, bad := range []string{"", "12", "ocds-b5fd17-", "ocds-b5fd17-x"} {
		_, err := ParseEventID(bad)
		require.True(t, apperrors.Is(err, apperrors.KindValidation), bad)
	}
}
