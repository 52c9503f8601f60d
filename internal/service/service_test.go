package service

import (
	"context"
	"testing"
	"time"

	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/clients"
	"example.com/backstage/services/tenders/internal/messaging"
	"example.com/backstage/services/tenders/internal/models"
	"example.com/backstage/services/tenders/internal/search"
	"example.com/backstage/services/tenders/internal/sourcing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	require.EqualError(t, err, "repository is required")
}

func TestListEventTypes(t *testing.T) {
	env := newTestEnv(t)
	types := env.svc.ListEventTypes()
	require.Len(t, types, len(models.ConcreteEventTypes))
	for _, et := range types {
		require.Equal(t, et.Type == models.EventTypeFCA || et.Type == models.EventTypeDAA, et.AssessmentBased)
		require.NotEmpty(t, et.Description)
	}
}

func TestCreatePlaceholderEvent(t *testing.T) {
	env := newTestEnv(t)

	summary := env.create(t, CreateEventRequest{})
	require.Equal(t, models.EventTypePlaceholder, summary.EventType)
	require.Equal(t, models.TenderStatusPlanning, summary.Status)
	require.Equal(t, "Cloud hosting-TBD", summary.Title)
	require.Equal(t, "ocds-b5fd17-1", summary.ID)
	require.Empty(t, summary.EventSupportID)

	stored := env.repo.stored(t, summary.ID)
	require.False(t, stored.HasRemoteRecord())
	require.Nil(t, stored.AssessmentID)
	require.Empty(t, env.remote.creates)

	require.Len(t, env.bus.sent, 1)
	require.Equal(t, messaging.EventCreated, env.bus.sent[0].(messaging.EventNotification).Type)
}

func TestCreateMarketEvent(t *testing.T) {
	env := newTestEnv(t)
	down := true

	summary := env.create(t, CreateEventRequest{Name: "Round 1", EventType: "rfi", DownSelectedSuppliers: &down})
	require.Equal(t, models.EventTypeRFI, summary.EventType)
	require.Equal(t, "itt_1", summary.EventSupportID)
	require.Equal(t, models.TenderStatusPlanning, summary.Status)

	stored := env.repo.stored(t, summary.ID)
	require.Equal(t, "rfq_1", stored.RemoteID())
	require.True(t, stored.DownSelectedSuppliers)

	require.Len(t, env.remote.creates, 1)
	created := env.remote.creates[0]
	require.Equal(t, "Round 1", *created.RfxSetting.ShortDescription)
	require.Equal(t, "itt_543", created.RfxSetting.TemplateReferenceCode)
	require.Equal(t, "tender_1", created.RfxSetting.TenderReferenceCode)
	require.Equal(t, "12345", created.RfxSetting.OwnerUser.ID)
	require.Equal(t, "52423", created.RfxSetting.BuyerCompany.ID)
	require.Equal(t, sourcing.RfxTypeStandard, created.RfxSetting.RfxType)
	// the unmapped lot supplier is skipped
	require.Equal(t, []string{"51435", "51436"}, env.remote.supplierIDs("rfq_1"))
	require.Equal(t, sourcing.InfoFrameworkKey, created.RfxAdditionalInfoList.AdditionalInfo[0].Name)
	require.Equal(t, "RM1234", created.RfxAdditionalInfoList.AdditionalInfo[0].Values.Value[0].Value)
}

func TestCreateMarketEventRemoteFailureSavesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.remote.createErr = apperrors.External(nil, "remote platform rejected create")

	_, err := env.svc.CreateEvent(context.Background(), projectID, CreateEventRequest{EventType: "EOI"}, buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindExternalSystem))
	require.Zero(t, env.repo.saves)
	require.Empty(t, env.bus.sent)
}

func TestCreateMarketEventUnknownBuyer(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateEvent(context.Background(), projectID, CreateEventRequest{EventType: "FC"}, "stranger@example.com")
	require.True(t, apperrors.Is(err, apperrors.KindAuthorisation))
	require.Empty(t, env.remote.creates)
}

func TestCreateAssessmentEventPopulatesSuppliers(t *testing.T) {
	env := newTestEnv(t)
	env.assessments.On("CreateEmptyAssessment", mock.Anything, "RM1234", "1a", models.EventTypeFCA, buyerEmail).
		Return(uint(42), nil).Once()

	summary := env.create(t, CreateEventRequest{EventType: "FCA"})
	require.Equal(t, uintPtr(42), summary.AssessmentID)
	require.Empty(t, summary.EventSupportID)
	require.Empty(t, env.remote.creates)

	suppliers, err := env.svc.GetSuppliers(context.Background(), projectID, summary.ID)
	require.NoError(t, err)
	require.Equal(t, []OrganisationReference{{ID: "GB-COH-1"}, {ID: "GB-COH-2"}}, suppliers)
	env.assessments.AssertExpectations(t)
}

func TestCreateAssessmentEventLinksExisting(t *testing.T) {
	env := newTestEnv(t)
	env.assessments.On("GetAssessment", mock.Anything, uint(7), buyerEmail).
		Return(&clients.Assessment{ID: 7, Status: "ACTIVE"}, nil).Once()

	summary := env.create(t, CreateEventRequest{EventType: "DAA", AssessmentID: uintPtr(7)})
	require.Equal(t, uintPtr(7), summary.AssessmentID)
	env.assessments.AssertNotCalled(t, "CreateEmptyAssessment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateAssessmentEventForeignAssessment(t *testing.T) {
	env := newTestEnv(t)
	env.assessments.On("GetAssessment", mock.Anything, uint(7), buyerEmail).
		Return(nil, apperrors.Authorisation("assessment 7 is not accessible")).Once()

	_, err := env.svc.CreateEvent(context.Background(), projectID, CreateEventRequest{EventType: "FCA", AssessmentID: uintPtr(7)}, buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindAuthorisation))
	require.Zero(t, env.repo.saves)
}

func TestCreateEventInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateEvent(context.Background(), 99, CreateEventRequest{}, buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = env.svc.CreateEvent(context.Background(), projectID, CreateEventRequest{EventType: "ITT"}, buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestPlaceholderToMarketCreatesRemoteRecordOnce(t *testing.T) {
	env := newTestEnv(t)
	env.agreements.On("EventCriteria", mock.Anything, "RM1234", "1a", models.EventTypeRFI).
		Return([]clients.Criterion{{ID: "Criterion 1", Title: "Quality"}}, nil)
	ctx := context.Background()

	created := env.create(t, CreateEventRequest{})
	require.Empty(t, created.EventSupportID)

	updated, err := env.svc.UpdateEvent(ctx, projectID, created.ID, UpdateEventRequest{EventType: "RFI", Name: "Round 2"}, buyerEmail)
	require.NoError(t, err)
	require.Equal(t, "itt_1", updated.EventSupportID)
	require.Equal(t, models.TenderStatusPlanning, updated.Status)
	require.Len(t, env.remote.creates, 1)
	require.Equal(t, "Round 2", *env.remote.creates[0].RfxSetting.ShortDescription)
	// the name travels with the create, no separate update
	require.Empty(t, env.remote.updates)

	stored := env.repo.stored(t, created.ID)
	require.Equal(t, "rfq_1", stored.RemoteID())
	require.Equal(t, "itt_1", stored.RemoteReference())

	detail, err := env.svc.GetEvent(ctx, projectID, created.ID, buyerEmail)
	require.NoError(t, err)
	require.Equal(t, "Round 2", detail.Title)
	require.Equal(t, 2, detail.SupplierCount)
	require.Len(t, detail.Criteria, 1)
}

func TestPlaceholderToAssessmentCreatesAssessment(t *testing.T) {
	env := newTestEnv(t)
	env.assessments.On("CreateEmptyAssessment", mock.Anything, "RM1234", "1a", models.EventTypeFCA, buyerEmail).
		Return(uint(9), nil).Once()
	env.assessments.On("GetAssessment", mock.Anything, uint(9), buyerEmail).
		Return(&clients.Assessment{ID: 9, Status: "ACTIVE"}, nil)

	created := env.create(t, CreateEventRequest{})
	updated, err := env.svc.UpdateEvent(context.Background(), projectID, created.ID, UpdateEventRequest{EventType: "FCA"}, buyerEmail)
	require.NoError(t, err)
	require.Equal(t, uintPtr(9), updated.AssessmentID)
	require.Equal(t, models.TenderStatusActive, updated.Status)
	require.Len(t, env.repo.stored(t, created.ID).SupplierSelections, 2)
	require.Empty(t, env.remote.creates)
}

func TestEventTypeCanOnlyBeSetOnce(t *testing.T) {
	for _, second := range []string{"DA", "FC", "TBD"} {
		env := newTestEnv(t)
		created := env.create(t, CreateEventRequest{})

		_, err := env.svc.UpdateEvent(context.Background(), projectID, created.ID, UpdateEventRequest{EventType: "FC"}, buyerEmail)
		require.NoError(t, err)

		_, err = env.svc.UpdateEvent(context.Background(), projectID, created.ID, UpdateEventRequest{EventType: second}, buyerEmail)
		require.True(t, apperrors.Is(err, apperrors.KindIllegalState), "second type %s", second)
		require.Equal(t, models.EventTypeFC, env.repo.stored(t, created.ID).EventType)
	}
}

func TestUpdateNameStagesShortDescriptionOnly(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, CreateEventRequest{EventType: "EOI"})

	_, err := env.svc.UpdateEvent(context.Background(), projectID, created.ID, UpdateEventRequest{Name: "Renamed"}, buyerEmail)
	require.NoError(t, err)

	require.Len(t, env.remote.updates, 1)
	update := env.remote.updates[0]
	require.Equal(t, sourcing.OperationCreateUpdate, update.OperationCode)
	require.Equal(t, "Renamed", *update.Rfx.RfxSetting.ShortDescription)
	require.Nil(t, update.Rfx.SuppliersList)
	require.Equal(t, "Renamed", env.repo.stored(t, created.ID).EventName)
}

func TestUpdateWithoutChangesWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, CreateEventRequest{EventType: "EOI"})
	saves := env.repo.saves

	summary, err := env.svc.UpdateEvent(context.Background(), projectID, created.ID, UpdateEventRequest{}, buyerEmail)
	require.NoError(t, err)
	require.Equal(t, models.TenderStatusPlanning, summary.Status)
	require.Equal(t, saves, env.repo.saves)
	require.Empty(t, env.remote.updates)
}

func TestUpdateAssessmentTarget(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, CreateEventRequest{})
	target := 5

	_, err := env.svc.UpdateEvent(context.Background(), projectID, created.ID, UpdateEventRequest{AssessmentSupplierTarget: &target}, buyerEmail)
	require.NoError(t, err)
	stored := env.repo.stored(t, created.ID)
	require.Equal(t, 5, *stored.AssessmentSupplierTarget)
	require.Equal(t, testNow, stored.UpdatedAt)
}

func TestUpdateRejectsMismatchedID(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, CreateEventRequest{})

	_, err := env.svc.UpdateEvent(context.Background(), projectID, created.ID, UpdateEventRequest{ID: "ocds-b5fd17-99"}, buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestEventLookups(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, CreateEventRequest{})
	ctx := context.Background()

	_, err := env.svc.GetEvent(ctx, projectID, "ocds-b5fd17-99", buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindNotFound))

	// right id under another prefix
	_, err = env.svc.GetEvent(ctx, projectID, "ocds-zzzzzz-1", buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = env.svc.GetEvent(ctx, 2, created.ID, buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = env.svc.GetEvent(ctx, projectID, "not-an-id", buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestGetEventCriteriaFailureIsTolerated(t *testing.T) {
	env := newTestEnv(t)
	env.agreements.On("EventCriteria", mock.Anything, "RM1234", "1a", models.EventTypeDA).
		Return(nil, apperrors.External(nil, "agreements down"))
	created := env.create(t, CreateEventRequest{EventType: "DA"})

	detail, err := env.svc.GetEvent(context.Background(), projectID, created.ID, buyerEmail)
	require.NoError(t, err)
	require.Empty(t, detail.Criteria)
}

func TestGetEventUnmappedRemoteStatus(t *testing.T) {
	env := newTestEnv(t)
	env.agreements.On("EventCriteria", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	created := env.create(t, CreateEventRequest{EventType: "DA"})
	env.remote.setStatus("rfq_1", 999)

	_, err := env.svc.GetEvent(context.Background(), projectID, created.ID, buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindExternalSystem))
}

func TestGetEventsForProjectStatusPerEvent(t *testing.T) {
	env := newTestEnv(t)
	env.assessments.On("CreateEmptyAssessment", mock.Anything, "RM1234", "1a", models.EventTypeFCA, buyerEmail).
		Return(uint(3), nil)
	env.assessments.On("GetAssessment", mock.Anything, uint(3), buyerEmail).
		Return(&clients.Assessment{ID: 3, Status: "ACTIVE"}, nil)

	env.create(t, CreateEventRequest{})
	env.create(t, CreateEventRequest{EventType: "RFI"})
	env.create(t, CreateEventRequest{EventType: "FCA"})
	env.remote.setStatus("rfq_1", 100)

	summaries, err := env.svc.GetEventsForProject(context.Background(), projectID, buyerEmail)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	require.Equal(t, models.TenderStatusPlanning, summaries[0].Status)
	require.Equal(t, models.TenderStatusPlanned, summaries[1].Status)
	require.Equal(t, models.TenderStatusActive, summaries[2].Status)

	_, err = env.svc.GetEventsForProject(context.Background(), 42, buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestUnknownAssessmentStatusIsExternal(t *testing.T) {
	env := newTestEnv(t)
	env.assessments.On("CreateEmptyAssessment", mock.Anything, "RM1234", "1a", models.EventTypeFCA, buyerEmail).
		Return(uint(5), nil)
	env.assessments.On("GetAssessment", mock.Anything, uint(5), buyerEmail).
		Return(&clients.Assessment{ID: 5, Status: "DRAFT"}, nil)

	env.create(t, CreateEventRequest{EventType: "FCA"})

	_, err := env.svc.GetEventsForProject(context.Background(), projectID, buyerEmail)
	require.True(t, apperrors.Is(err, apperrors.KindExternalSystem))
	require.Contains(t, err.Error(), "DRAFT")
}

func TestPublishEvent(t *testing.T) {
	end := testNow.Add(14 * 24 * time.Hour)
	start := testNow.Add(time.Hour)
	dates := PublishDates{StartDate: &start, EndDate: &end}

	t.Run("planned", func(t *testing.T) {
		env := newTestEnv(t)
		created := env.create(t, CreateEventRequest{EventType: "RFI"})
		env.remote.setStatus("rfq_1", 100)

		require.NoError(t, env.svc.PublishEvent(context.Background(), projectID, created.ID, dates, buyerEmail))
		require.Len(t, env.remote.published, 1)
		require.Equal(t, "12345", env.remote.published[0].OperatorUser.ID)
		require.Equal(t, "itt_1", env.remote.published[0].RfxReferenceCode)
		require.True(t, end.Equal(env.remote.published[0].NewClosingDate))
	})

	t.Run("not planned", func(t *testing.T) {
		env := newTestEnv(t)
		created := env.create(t, CreateEventRequest{EventType: "RFI"})

		err := env.svc.PublishEvent(context.Background(), projectID, created.ID, dates, buyerEmail)
		require.True(t, apperrors.Is(err, apperrors.KindIllegalState))
		require.Empty(t, env.remote.published)
	})

	t.Run("end date in the past", func(t *testing.T) {
		env := newTestEnv(t)
		created := env.create(t, CreateEventRequest{EventType: "RFI"})
		env.remote.setStatus("rfq_1", 100)
		past := testNow.Add(-time.Hour)

		err := env.svc.PublishEvent(context.Background(), projectID, created.ID, PublishDates{EndDate: &past}, buyerEmail)
		require.True(t, apperrors.Is(err, apperrors.KindValidation))
		require.Empty(t, env.remote.published)
	})

	t.Run("unknown buyer", func(t *testing.T) {
		env := newTestEnv(t)
		created := env.create(t, CreateEventRequest{EventType: "RFI"})

		err := env.svc.PublishEvent(context.Background(), projectID, created.ID, dates, "stranger@example.com")
		require.True(t, apperrors.Is(err, apperrors.KindAuthorisation))
	})

	t.Run("placeholder", func(t *testing.T) {
		env := newTestEnv(t)
		created := env.create(t, CreateEventRequest{})

		err := env.svc.PublishEvent(context.Background(), projectID, created.ID, dates, buyerEmail)
		require.True(t, apperrors.Is(err, apperrors.KindIllegalState))
	})
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	env := newTestEnv(t)
	env.bus.err = errors.New("service bus unavailable")

	summary, err := env.svc.CreateEvent(context.Background(), projectID, CreateEventRequest{}, buyerEmail)
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Len(t, env.bus.sent, 1)
}

func TestSyncSearchIndex(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, CreateEventRequest{})
	env.create(t, CreateEventRequest{EventType: "RFI"})
	env.create(t, CreateEventRequest{EventType: "EOI"})
	env.remote.setStatus("rfq_2", 100)

	indexed, err := env.svc.SyncSearchIndex(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 3, indexed)
	require.Equal(t, "Cloud hosting", env.index.docs["ocds-b5fd17-1"].ProjectName)

	docs, err := env.svc.SearchEvents(context.Background(), search.Query{Status: "planned"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "ocds-b5fd17-3", docs[0].ID)
}
