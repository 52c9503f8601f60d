package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/clients"
	"example.com/backstage/services/tenders/internal/messaging"
	"example.com/backstage/services/tenders/internal/metrics"
	"example.com/backstage/services/tenders/internal/models"
	"example.com/backstage/services/tenders/internal/repository"
	"example.com/backstage/services/tenders/internal/search"
	"example.com/backstage/services/tenders/internal/sourcing"
	"example.com/backstage/services/tenders/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EventOrchestrator runs the lifecycle of procurement events across the
// local store and the remote sourcing platform
type EventOrchestrator interface {
	ListEventTypes() []EventTypeSummary
	CreateEvent(ctx context.Context, projectID uint, req CreateEventRequest, actor string) (*EventSummary, error)
	UpdateEvent(ctx context.Context, projectID uint, eventID string, req UpdateEventRequest, actor string) (*EventSummary, error)
	GetEvent(ctx context.Context, projectID uint, eventID, actor string) (*EventDetail, error)
	GetEventsForProject(ctx context.Context, projectID uint, actor string) ([]EventSummary, error)
	PublishEvent(ctx context.Context, projectID uint, eventID string, dates PublishDates, actor string) error

	GetSuppliers(ctx context.Context, projectID uint, eventID string) ([]OrganisationReference, error)
	AddSuppliers(ctx context.Context, projectID uint, eventID string, refs []OrganisationReference, overwrite bool, actor string) ([]OrganisationReference, error)
	DeleteSupplier(ctx context.Context, projectID uint, eventID, organisationID, actor string) error

	GetDocumentSummaries(ctx context.Context, projectID uint, eventID string) ([]DocumentSummary, error)
	UploadDocument(ctx context.Context, projectID uint, eventID string, upload DocumentUpload, actor string) (*DocumentSummary, error)
	GetDocument(ctx context.Context, projectID uint, eventID, documentID string) (*DocumentAttachment, error)

	SearchEvents(ctx context.Context, q search.Query) ([]search.EventDocument, error)
	SyncSearchIndex(ctx context.Context, batchSize int) (int, error)
}

// ServiceConfig holds the dependencies of the orchestrator
type ServiceConfig struct {
	Repository      repository.Repository
	Sourcing        sourcing.Client
	Assessments     clients.AssessmentClient
	Agreements      clients.AgreementsClient
	MessagingClient messaging.ServiceBusClient
	// SearchIndex is optional; search is disabled without it
	SearchIndex search.Index
	Settings    *Settings
	Clock       func() time.Time
}

type service struct {
	repo        repository.Repository
	sourcing    sourcing.Client
	assessments clients.AssessmentClient
	agreements  clients.AgreementsClient
	messaging   messaging.ServiceBusClient
	index       search.Index
	settings    *Settings
	suppliers   *SupplierReconciler
	documents   *DocumentPolicy
	now         func() time.Time
}

// NewService creates the event orchestrator
func NewService(cfg ServiceConfig) (EventOrchestrator, error) {
	if cfg.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if cfg.Sourcing == nil {
		return nil, errors.New("sourcing client is required")
	}
	if cfg.Assessments == nil {
		return nil, errors.New("assessment client is required")
	}
	if cfg.Agreements == nil {
		return nil, errors.New("agreements client is required")
	}
	if cfg.MessagingClient == nil {
		return nil, errors.New("messaging client is required")
	}
	if cfg.Settings == nil {
		return nil, errors.New("settings are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &service{
		repo:        cfg.Repository,
		sourcing:    cfg.Sourcing,
		assessments: cfg.Assessments,
		agreements:  cfg.Agreements,
		messaging:   cfg.MessagingClient,
		index:       cfg.SearchIndex,
		settings:    cfg.Settings,
		suppliers:   NewSupplierReconciler(cfg.Repository, cfg.Sourcing, cfg.Agreements, cfg.Clock),
		documents:   NewDocumentPolicy(cfg.Settings.Documents, cfg.Sourcing),
		now:         cfg.Clock,
	}, nil
}

// ListEventTypes returns every type an event can be given
func (s *service) ListEventTypes() []EventTypeSummary {
	types := make([]EventTypeSummary, 0, len(models.ConcreteEventTypes))
	for _, t := range models.ConcreteEventTypes {
		types = append(types, EventTypeSummary{
			Type:            t,
			Description:     t.Description(),
			AssessmentBased: models.Classify(t) == models.KindAssessment,
		})
	}
	return types
}

// CreateEvent creates an event on the project. Market events get their
// remote record before anything is written locally.
func (s *service) CreateEvent(ctx context.Context, projectID uint, req CreateEventRequest, actor string) (*EventSummary, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	eventType := models.EventTypePlaceholder
	if strings.TrimSpace(req.EventType) != "" {
		eventType = models.EventTypeFromString(req.EventType)
		if !eventType.Valid() {
			return nil, apperrors.Validation("Unknown event type '%s'", req.EventType)
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf(s.settings.DefaultTitleFormat, project.Name, eventType)
	}

	now := s.now()
	event := &models.Event{
		ProjectID:             project.ID,
		Project:               project,
		OCDSAuthorityName:     s.settings.OCDSAuthority,
		OCIDPrefix:            s.settings.OCIDPrefix,
		EventType:             eventType,
		EventName:             name,
		DownSelectedSuppliers: req.DownSelectedSuppliers != nil && *req.DownSelectedSuppliers,
		CreatedBy:             actor,
		CreatedAt:             now,
		UpdatedBy:             actor,
		UpdatedAt:             now,
	}

	switch event.Kind() {
	case models.KindAssessment:
		id, err := s.linkOrCreateAssessment(ctx, project, eventType, req.AssessmentID, actor)
		if err != nil {
			return nil, err
		}
		event.AssessmentID = &id
		if err := s.suppliers.PopulateFromLot(ctx, event, project, actor); err != nil {
			return nil, err
		}
	case models.KindMarket:
		if err := s.createRemoteRecord(ctx, project, event, actor); err != nil {
			return nil, err
		}
	default:
		if req.AssessmentID != nil {
			if _, err := s.assessments.GetAssessment(ctx, *req.AssessmentID, actor); err != nil {
				return nil, err
			}
			event.AssessmentID = req.AssessmentID
		}
	}

	if err := s.repo.SaveEvent(ctx, event); err != nil {
		return nil, apperrors.Internal(err, "failed to save event")
	}

	log.Info().
		Str("event_id", event.PublicID()).
		Str("event_type", event.EventType.String()).
		Str("actor", actor).
		Msg("Event created")
	s.notify(ctx, messaging.EventCreated, event, actor)

	return summarise(event, models.TenderStatusPlanning), nil
}

func (s *service) linkOrCreateAssessment(ctx context.Context, project *models.Project, eventType models.EventType, assessmentID *uint, actor string) (uint, error) {
	if assessmentID != nil {
		if _, err := s.assessments.GetAssessment(ctx, *assessmentID, actor); err != nil {
			return 0, err
		}
		return *assessmentID, nil
	}
	return s.assessments.CreateEmptyAssessment(ctx, project.FrameworkID, project.LotID, eventType, actor)
}

// createRemoteRecord creates the remote counterpart and stores its identifiers on event
func (s *service) createRemoteRecord(ctx context.Context, project *models.Project, event *models.Event, actor string) error {
	user, err := s.resolveBuyer(ctx, actor)
	if err != nil {
		return err
	}
	mappings, err := s.suppliers.LotMappings(ctx, project)
	if err != nil {
		return err
	}

	name := event.EventName
	rfiFlag := sourcing.RfiFlagStandard
	rfx := sourcing.Rfx{
		RfxSetting: &sourcing.RfxSetting{
			ShortDescription:      &name,
			TemplateReferenceCode: s.settings.TemplateID,
			TenderReferenceCode:   project.ExternalReferenceID,
			RfiFlag:               &rfiFlag,
			RfxType:               sourcing.RfxTypeStandard,
			BuyerCompany:          &sourcing.CompanyRef{ID: user.CompanyID},
			OwnerUser:             &sourcing.UserRef{ID: user.UserID},
		},
		RfxAdditionalInfoList: &sourcing.AdditionalInfoList{
			AdditionalInfo: []sourcing.AdditionalInfo{
				sourcing.NewAdditionalInfo(sourcing.InfoFrameworkKey, project.FrameworkID),
				sourcing.NewAdditionalInfo(sourcing.InfoLotKey, project.LotID),
			},
		},
		SuppliersList: &sourcing.SuppliersList{Supplier: remoteSuppliers(mappings)},
	}

	segment := tracing.StartSegment(ctx, "sourcing/create-rfx")
	resp, err := s.sourcing.CreateRfx(ctx, rfx)
	segment.End()
	if err != nil {
		tracing.NoticeError(ctx, err)
		return err
	}
	event.SetRemoteRecord(resp.RfxID, resp.RfxReferenceCode)
	return nil
}

func (s *service) resolveBuyer(ctx context.Context, actor string) (*sourcing.BuyerUser, error) {
	user, err := s.sourcing.FindBuyerUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Authorisation("No remote buyer account found for '%s'", actor)
	}
	return user, nil
}

// UpdateEvent applies the name, type and assessment edits that are present.
// Nothing is written unless something changed.
func (s *service) UpdateEvent(ctx context.Context, projectID uint, eventID string, req UpdateEventRequest, actor string) (*EventSummary, error) {
	if req.ID != "" && req.ID != eventID {
		return nil, apperrors.Validation("Event id '%s' in the body does not match '%s'", req.ID, eventID)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	event, err := s.loadEvent(ctx, projectID, eventID)
	if err != nil {
		return nil, err
	}
	project, err := s.projectOf(ctx, event)
	if err != nil {
		return nil, err
	}

	update := sourcing.NewRfxUpdate(event.RemoteID(), event.RemoteReference())
	var updateDB, createAssessment, populateSuppliers, createRemote bool

	if name := strings.TrimSpace(req.Name); name != "" {
		event.EventName = name
		update.WithShortDescription(name)
		updateDB = true
	}

	if strings.TrimSpace(req.EventType) != "" {
		newType := models.EventTypeFromString(req.EventType)
		if err := event.AssignType(newType); err != nil {
			return nil, err
		}
		updateDB = true
		switch models.Classify(newType) {
		case models.KindAssessment:
			populateSuppliers = true
			createAssessment = event.AssessmentID == nil && req.AssessmentID == nil
		case models.KindMarket:
			createRemote = !event.HasRemoteRecord()
		}
	}

	if req.AssessmentID != nil {
		if _, err := s.assessments.GetAssessment(ctx, *req.AssessmentID, actor); err != nil {
			return nil, err
		}
		event.AssessmentID = req.AssessmentID
		updateDB = true
	}
	if req.AssessmentSupplierTarget != nil {
		event.AssessmentSupplierTarget = req.AssessmentSupplierTarget
		updateDB = true
	}

	if createAssessment {
		id, err := s.assessments.CreateEmptyAssessment(ctx, project.FrameworkID, project.LotID, event.EventType, actor)
		if err != nil {
			return nil, err
		}
		event.AssessmentID = &id
	}
	if populateSuppliers {
		if err := s.suppliers.PopulateFromLot(ctx, event, project, actor); err != nil {
			return nil, err
		}
	}

	if createRemote {
		if err := s.createRemoteRecord(ctx, project, event, actor); err != nil {
			return nil, err
		}
	} else if update.Staged() && event.HasRemoteRecord() {
		if _, err := s.sourcing.UpdateRfx(ctx, update); err != nil {
			return nil, err
		}
	}

	if updateDB {
		event.Touch(actor, s.now())
		if err := s.repo.SaveEvent(ctx, event); err != nil {
			return nil, apperrors.Internal(err, "failed to save event '%s'", eventID)
		}
		s.notify(ctx, messaging.EventUpdated, event, actor)
	}

	status, err := s.statusOf(ctx, event, actor)
	if err != nil {
		return nil, err
	}
	return summarise(event, status), nil
}

// GetEvent returns the event with its remote state
func (s *service) GetEvent(ctx context.Context, projectID uint, eventID, actor string) (*EventDetail, error) {
	event, err := s.loadEvent(ctx, projectID, eventID)
	if err != nil {
		return nil, err
	}

	detail := &EventDetail{
		ProjectID:                event.ProjectID,
		DownSelectedSuppliers:    event.DownSelectedSuppliers,
		AssessmentSupplierTarget: event.AssessmentSupplierTarget,
		SupplierCount:            len(event.SupplierSelections),
		CreatedBy:                event.CreatedBy,
		UpdatedAt:                event.UpdatedAt,
	}

	if event.Kind() != models.KindMarket {
		status, err := s.statusOf(ctx, event, actor)
		if err != nil {
			return nil, err
		}
		detail.EventSummary = *summarise(event, status)
		return detail, nil
	}

	if err := remoteRecord(event); err != nil {
		return nil, err
	}
	rfx, err := s.sourcing.GetRfx(ctx, event.RemoteID())
	if err != nil {
		return nil, err
	}
	status, err := s.settings.Status.TranslateRfx(rfx)
	if err != nil {
		return nil, err
	}
	detail.EventSummary = *summarise(event, status)
	detail.SupplierCount = len(rfx.Suppliers())

	project, err := s.projectOf(ctx, event)
	if err != nil {
		return nil, err
	}
	criteria, err := s.agreements.EventCriteria(ctx, project.FrameworkID, project.LotID, event.EventType)
	if err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("Evaluation criteria unavailable")
	} else {
		detail.Criteria = criteria
	}
	return detail, nil
}

// GetEventsForProject lists the events of a project with their current status
func (s *service) GetEventsForProject(ctx context.Context, projectID uint, actor string) ([]EventSummary, error) {
	if _, err := s.findProject(ctx, projectID); err != nil {
		return nil, err
	}
	events, err := s.repo.FindEventsByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list events of project %d", projectID)
	}

	summaries := make([]EventSummary, 0, len(events))
	for _, event := range events {
		status, err := s.statusOf(ctx, event, actor)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summarise(event, status))
	}
	return summaries, nil
}

// PublishEvent publishes a planned market event
func (s *service) PublishEvent(ctx context.Context, projectID uint, eventID string, dates PublishDates, actor string) error {
	user, err := s.resolveBuyer(ctx, actor)
	if err != nil {
		return err
	}
	event, err := s.loadEvent(ctx, projectID, eventID)
	if err != nil {
		return err
	}
	if err := remoteRecord(event); err != nil {
		return err
	}

	rfx, err := s.sourcing.GetRfx(ctx, event.RemoteID())
	if err != nil {
		return err
	}
	status, err := s.settings.Status.TranslateRfx(rfx)
	if err != nil {
		return err
	}
	if status != models.TenderStatusPlanned {
		return apperrors.IllegalState("You cannot publish an event unless it is in a '%s' state, event '%s' is '%s'",
			models.TenderStatusPlanned, eventID, status)
	}

	if err := ValidatePublishDates(dates, s.now()); err != nil {
		return err
	}

	segment := tracing.StartSegment(ctx, "sourcing/publish-rfx")
	err = s.sourcing.PublishRfx(ctx, sourcing.PublishRfx{
		RfxID:            event.RemoteID(),
		RfxReferenceCode: event.RemoteReference(),
		OperatorUser:     sourcing.UserRef{ID: user.UserID},
		NewClosingDate:   dates.EndDate.UTC(),
	})
	segment.End()
	if err != nil {
		tracing.NoticeError(ctx, err)
		return err
	}

	log.Info().Str("event_id", eventID).Str("actor", actor).Msg("Event published")
	s.notify(ctx, messaging.EventPublished, event, actor)
	return nil
}

// GetSuppliers lists the suppliers of the event
func (s *service) GetSuppliers(ctx context.Context, projectID uint, eventID string) ([]OrganisationReference, error) {
	event, err := s.loadEvent(ctx, projectID, eventID)
	if err != nil {
		return nil, err
	}
	return s.suppliers.List(ctx, event)
}

// AddSuppliers adds suppliers, replacing the current ones when overwrite is set
func (s *service) AddSuppliers(ctx context.Context, projectID uint, eventID string, refs []OrganisationReference, overwrite bool, actor string) ([]OrganisationReference, error) {
	event, err := s.loadEvent(ctx, projectID, eventID)
	if err != nil {
		return nil, err
	}
	added, err := s.suppliers.Add(ctx, event, refs, overwrite, actor)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, messaging.EventSuppliersUpdated, event, actor)
	return added, nil
}

// DeleteSupplier removes a supplier from the event
func (s *service) DeleteSupplier(ctx context.Context, projectID uint, eventID, organisationID, actor string) error {
	event, err := s.loadEvent(ctx, projectID, eventID)
	if err != nil {
		return err
	}
	if err := s.suppliers.Delete(ctx, event, organisationID, actor); err != nil {
		return err
	}
	s.notify(ctx, messaging.EventSuppliersUpdated, event, actor)
	return nil
}

// GetDocumentSummaries lists the attachments of the event
func (s *service) GetDocumentSummaries(ctx context.Context, projectID uint, eventID string) ([]DocumentSummary, error) {
	event, err := s.loadEvent(ctx, projectID, eventID)
	if err != nil {
		return nil, err
	}
	return s.documents.List(ctx, event)
}

// UploadDocument attaches a file to the event
func (s *service) UploadDocument(ctx context.Context, projectID uint, eventID string, upload DocumentUpload, actor string) (*DocumentSummary, error) {
	event, err := s.loadEvent(ctx, projectID, eventID)
	if err != nil {
		return nil, err
	}
	doc, err := s.documents.Upload(ctx, event, upload)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, messaging.EventDocumentUploaded, event, actor)
	return doc, nil
}

// GetDocument downloads an attachment of the event
func (s *service) GetDocument(ctx context.Context, projectID uint, eventID, documentID string) (*DocumentAttachment, error) {
	event, err := s.loadEvent(ctx, projectID, eventID)
	if err != nil {
		return nil, err
	}
	return s.documents.Get(ctx, event, documentID)
}

func (s *service) findProject(ctx context.Context, projectID uint) (*models.Project, error) {
	project, err := s.repo.FindProject(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Project '%d' not found", projectID)
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load project %d", projectID)
	}
	return project, nil
}

func (s *service) projectOf(ctx context.Context, event *models.Event) (*models.Project, error) {
	if event.Project != nil {
		return event.Project, nil
	}
	project, err := s.findProject(ctx, event.ProjectID)
	if err != nil {
		return nil, err
	}
	event.Project = project
	return project, nil
}

// loadEvent finds the event by its public id within the project
func (s *service) loadEvent(ctx context.Context, projectID uint, eventID string) (*models.Event, error) {
	id, err := models.ParseEventID(eventID)
	if err != nil {
		return nil, err
	}
	event, err := s.repo.FindEvent(ctx, projectID, id.ID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !id.Matches(event)) {
		return nil, apperrors.NotFound("Event '%s' not found on project '%d'", eventID, projectID)
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load event '%s'", eventID)
	}
	return event, nil
}

// statusOf reads the status from the remote record, the linked assessment,
// or reports planning for an event that has neither
func (s *service) statusOf(ctx context.Context, event *models.Event, actor string) (models.TenderStatus, error) {
	switch {
	case event.HasRemoteRecord():
		rfx, err := s.sourcing.GetRfx(ctx, event.RemoteID())
		if err != nil {
			return "", err
		}
		return s.settings.Status.TranslateRfx(rfx)
	case event.AssessmentID != nil:
		assessment, err := s.assessments.GetAssessment(ctx, *event.AssessmentID, actor)
		if err != nil {
			return "", err
		}
		status := models.TenderStatus(strings.ToLower(assessment.Status))
		if !status.Valid() {
			return "", apperrors.External(nil, "assessment %d has unknown status '%s'", assessment.ID, assessment.Status)
		}
		return status, nil
	default:
		return models.TenderStatusPlanning, nil
	}
}

// notify publishes a lifecycle notification. Failures are logged only.
func (s *service) notify(ctx context.Context, kind string, event *models.Event, actor string) {
	n := messaging.NewEventNotification(kind, event.ProjectID, event.PublicID(), event.EventType.String(), actor, s.now())
	if err := s.messaging.SendMessage(ctx, n, n.EventID); err != nil {
		metrics.GetMetricsCollector().IncrementCounter(metrics.CounterNotificationsFail, 1)
		log.Warn().Err(err).Str("type", kind).Str("event_id", n.EventID).Msg("Failed to send event notification")
		return
	}
	metrics.GetMetricsCollector().IncrementCounter(metrics.CounterNotifications, 1)
}

func summarise(event *models.Event, status models.TenderStatus) *EventSummary {
	return &EventSummary{
		ID:             event.PublicID(),
		Title:          event.EventName,
		EventStage:     EventStage,
		EventType:      event.EventType,
		EventSupportID: event.RemoteReference(),
		Status:         status,
		AssessmentID:   event.AssessmentID,
	}
}
