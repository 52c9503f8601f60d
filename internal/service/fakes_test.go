package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/clients"
	"example.com/backstage/services/tenders/internal/models"
	"example.com/backstage/services/tenders/internal/repository"
	"example.com/backstage/services/tenders/internal/search"
	"example.com/backstage/services/tenders/internal/sourcing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	buyerEmail = "buyer@example.com"
	projectID  = uint(1)
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// memoryRepo is an in-memory repository.Repository. Reads return copies so
// unsaved changes never leak into the store.
type memoryRepo struct {
	mu              sync.Mutex
	projects        map[uint]*models.Project
	events          map[uint]*models.Event
	mappings        []*models.OrganisationMapping
	nextEventID     uint
	nextSelectionID uint
	saves           int
	deletedRows     []uint
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		projects: map[uint]*models.Project{
			projectID: {ID: projectID, Name: "Cloud hosting", FrameworkID: "RM1234", LotID: "1a", ExternalReferenceID: "tender_1"},
		},
		events: map[uint]*models.Event{},
		mappings: []*models.OrganisationMapping{
			{ID: 1, OrganisationID: "GB-COH-1", ExternalOrganisationID: "51435"},
			{ID: 2, OrganisationID: "GB-COH-2", ExternalOrganisationID: "51436"},
			{ID: 3, OrganisationID: "GB-COH-3", ExternalOrganisationID: "51437"},
		},
	}
}

func cloneEvent(e *models.Event) *models.Event {
	c := *e
	c.SupplierSelections = append([]models.SupplierSelection(nil), e.SupplierSelections...)
	return &c
}

func (r *memoryRepo) FindProject(ctx context.Context, id uint) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) FindEventsByProject(ctx context.Context, id uint) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var events []*models.Event
	for _, e := range r.events {
		if e.ProjectID == id {
			events = append(events, cloneEvent(e))
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (r *memoryRepo) FindEvent(ctx context.Context, pID, eID uint) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eID]
	if !ok || e.ProjectID != pID {
		return nil, repository.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (r *memoryRepo) ListEvents(ctx context.Context, limit, offset int) ([]*models.Event, error) {
	all, _ := r.FindEventsByProject(ctx, projectID)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryRepo) SaveEvent(ctx context.Context, e *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if e.ID == 0 {
		r.nextEventID++
		e.ID = r.nextEventID
	}
	for i := range e.SupplierSelections {
		e.SupplierSelections[i].EventID = e.ID
		if e.SupplierSelections[i].ID == 0 {
			r.nextSelectionID++
			e.SupplierSelections[i].ID = r.nextSelectionID
		}
	}
	r.events[e.ID] = cloneEvent(e)
	return nil
}

func (r *memoryRepo) DeleteSupplierSelection(ctx context.Context, s *models.SupplierSelection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedRows = append(r.deletedRows, s.ID)
	return nil
}

func (r *memoryRepo) FindOrganisationMapping(ctx context.Context, id string) (*models.OrganisationMapping, error) {
	for _, m := range r.mappings {
		if m.OrganisationID == id {
			return m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryRepo) FindOrganisationMappingByExternalID(ctx context.Context, id string) (*models.OrganisationMapping, error) {
	for _, m := range r.mappings {
		if m.ExternalOrganisationID == id {
			return m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryRepo) FindOrganisationMappings(ctx context.Context, ids []string) ([]*models.OrganisationMapping, error) {
	var found []*models.OrganisationMapping
	for _, id := range ids {
		if m, err := r.FindOrganisationMapping(ctx, id); err == nil {
			found = append(found, m)
		}
	}
	return found, nil
}

func (r *memoryRepo) stored(t *testing.T, publicID string) *models.Event {
	t.Helper()
	id, err := models.ParseEventID(publicID)
	require.NoError(t, err)
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id.ID]
	require.True(t, ok, "event %s not stored", publicID)
	return e
}

// fakeRemote is an in-memory sourcing.Client that applies merge and reset updates
type fakeRemote struct {
	mu          sync.Mutex
	records     map[string]*sourcing.Rfx
	users       map[string]*sourcing.BuyerUser
	files       map[int64][]byte
	creates     []sourcing.Rfx
	updates     []sourcing.CreateUpdateRfx
	uploads     int
	published   []sourcing.PublishRfx
	nextID      int
	nextFileID  int64
	createErr   error
	uploadDrops bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		records: map[string]*sourcing.Rfx{},
		users: map[string]*sourcing.BuyerUser{
			buyerEmail: {UserID: "12345", CompanyID: "52423", Email: buyerEmail},
		},
		files: map[int64][]byte{},
	}
}

func (f *fakeRemote) CreateRfx(ctx context.Context, rfx sourcing.Rfx) (*sourcing.CreateUpdateRfxResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, rfx)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	id, ref := fmt.Sprintf("rfq_%d", f.nextID), fmt.Sprintf("itt_%d", f.nextID)

	code := 0
	setting := *rfx.RfxSetting
	setting.RfxID, setting.RfxReferenceCode, setting.StatusCode = id, ref, &code
	stored := rfx
	stored.RfxSetting = &setting
	f.records[id] = &stored
	return &sourcing.CreateUpdateRfxResponse{ReturnMessage: "OK", RfxID: id, RfxReferenceCode: ref}, nil
}

func (f *fakeRemote) UpdateRfx(ctx context.Context, update *sourcing.RfxUpdate) (*sourcing.CreateUpdateRfxResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req := update.Request()
	f.updates = append(f.updates, req)
	rec, ok := f.records[update.RfxID()]
	if !ok {
		return nil, apperrors.External(nil, "unknown rfx %s", update.RfxID())
	}
	if d := req.Rfx.RfxSetting.ShortDescription; d != nil {
		rec.RfxSetting.ShortDescription = d
	}
	if list := req.Rfx.SuppliersList; list != nil {
		if req.OperationCode == sourcing.OperationUpdateReset || rec.SuppliersList == nil {
			rec.SuppliersList = &sourcing.SuppliersList{Supplier: append([]sourcing.Supplier{}, list.Supplier...)}
		} else {
			for _, s := range list.Supplier {
				if !hasSupplier(rec.Suppliers(), s.CompanyData.ID) {
					rec.SuppliersList.Supplier = append(rec.SuppliersList.Supplier, s)
				}
			}
		}
	}
	return &sourcing.CreateUpdateRfxResponse{ReturnMessage: "OK"}, nil
}

func hasSupplier(list []sourcing.Supplier, id string) bool {
	for _, s := range list {
		if s.CompanyData.ID == id {
			return true
		}
	}
	return false
}

func (f *fakeRemote) GetRfx(ctx context.Context, id string) (*sourcing.Rfx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, apperrors.External(nil, "unknown rfx %s", id)
	}
	c := *rec
	return &c, nil
}

func (f *fakeRemote) UploadAttachment(ctx context.Context, update *sourcing.RfxUpdate, fileName string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadDrops {
		return nil
	}
	req := update.Request()
	rec := f.records[update.RfxID()]
	f.nextFileID++
	attachment := sourcing.Attachment{FileID: f.nextFileID, FileName: fileName, FileSize: int64(len(data))}
	f.files[f.nextFileID] = data
	if req.Rfx.SellerAttachmentsList != nil {
		attachment.FileDescription = req.Rfx.SellerAttachmentsList.Attachment[0].FileDescription
		rec.SellerAttachmentsList = appendAttachment(rec.SellerAttachmentsList, attachment)
	} else {
		attachment.FileDescription = req.Rfx.BuyerAttachmentsList.Attachment[0].FileDescription
		rec.BuyerAttachmentsList = appendAttachment(rec.BuyerAttachmentsList, attachment)
	}
	return nil
}

func appendAttachment(list *sourcing.AttachmentList, a sourcing.Attachment) *sourcing.AttachmentList {
	if list == nil {
		list = &sourcing.AttachmentList{}
	}
	list.Attachment = append(list.Attachment, a)
	return list
}

func (f *fakeRemote) GetAttachment(ctx context.Context, fileID int64, fileName string) (*sourcing.AttachmentPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[fileID]
	if !ok {
		return nil, apperrors.External(nil, "remote platform returned 404")
	}
	return &sourcing.AttachmentPayload{FileName: fileName, Data: data}, nil
}

func (f *fakeRemote) PublishRfx(ctx context.Context, req sourcing.PublishRfx) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, req)
	return nil
}

func (f *fakeRemote) FindBuyerUser(ctx context.Context, email string) (*sourcing.BuyerUser, error) {
	return f.users[email], nil
}

func (f *fakeRemote) setStatus(id string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[id].RfxSetting.StatusCode = &code
}

func (f *fakeRemote) supplierIDs(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, s := range f.records[id].Suppliers() {
		ids = append(ids, s.CompanyData.ID)
	}
	return ids
}

// MockAssessments is a testify mock of clients.AssessmentClient
type MockAssessments struct {
	mock.Mock
}

func (m *MockAssessments) CreateEmptyAssessment(ctx context.Context, frameworkID, lotID string, eventType models.EventType, actor string) (uint, error) {
	args := m.Called(ctx, frameworkID, lotID, eventType, actor)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockAssessments) GetAssessment(ctx context.Context, id uint, actor string) (*clients.Assessment, error) {
	args := m.Called(ctx, id, actor)
	a, _ := args.Get(0).(*clients.Assessment)
	return a, args.Error(1)
}

// MockAgreements is a testify mock of clients.AgreementsClient
type MockAgreements struct {
	mock.Mock
}

func (m *MockAgreements) LotSuppliers(ctx context.Context, frameworkID, lotID string) ([]string, error) {
	args := m.Called(ctx, frameworkID, lotID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockAgreements) EventCriteria(ctx context.Context, frameworkID, lotID string, eventType models.EventType) ([]clients.Criterion, error) {
	args := m.Called(ctx, frameworkID, lotID, eventType)
	c, _ := args.Get(0).([]clients.Criterion)
	return c, args.Error(1)
}

// fakeBus records every notification
type fakeBus struct {
	mu   sync.Mutex
	sent []interface{}
	err  error
}

func (b *fakeBus) SendMessage(ctx context.Context, body interface{}, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, body)
	return b.err
}

func (b *fakeBus) Close() error { return nil }

// fakeIndex is an in-memory search.Index
type fakeIndex struct {
	docs map[string]search.EventDocument
}

func (i *fakeIndex) IndexEvent(ctx context.Context, doc search.EventDocument) error {
	i.docs[doc.ID] = doc
	return nil
}

func (i *fakeIndex) SearchEvents(ctx context.Context, q search.Query) ([]search.EventDocument, error) {
	var docs []search.EventDocument
	for _, d := range i.docs {
		if q.Status == "" || d.Status == q.Status {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

type testEnv struct {
	svc         EventOrchestrator
	repo        *memoryRepo
	remote      *fakeRemote
	assessments *MockAssessments
	agreements  *MockAgreements
	bus         *fakeBus
	index       *fakeIndex
}

func testSettings(t *testing.T) *Settings {
	t.Helper()
	status, err := NewStatusTranslator(map[string]string{
		"0":   "planning",
		"100": "planned",
		"200": "active",
	})
	require.NoError(t, err)
	return &Settings{
		TemplateID:         "itt_543",
		DefaultTitleFormat: "%s-%s",
		OCDSAuthority:      "ocds",
		OCIDPrefix:         "b5fd17",
		Documents:          NewDocumentLimits([]string{"pdf", "txt"}, 100, 250),
		Status:             status,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:        newMemoryRepo(),
		remote:      newFakeRemote(),
		assessments: new(MockAssessments),
		agreements:  new(MockAgreements),
		bus:         &fakeBus{},
		index:       &fakeIndex{docs: map[string]search.EventDocument{}},
	}
	env.agreements.On("LotSuppliers", mock.Anything, "RM1234", "1a").
		Return([]string{"GB-COH-1", "GB-COH-2", "GB-COH-9"}, nil).Maybe()

	svc, err := NewService(ServiceConfig{
		Repository:      env.repo,
		Sourcing:        env.remote,
		Assessments:     env.assessments,
		Agreements:      env.agreements,
		MessagingClient: env.bus,
		SearchIndex:     env.index,
		Settings:        testSettings(t),
		Clock:           func() time.Time { return testNow },
	})
	require.NoError(t, err)
	env.svc = svc
	return env
}

func (env *testEnv) create(t *testing.T, req CreateEventRequest) *EventSummary {
	t.Helper()
	summary, err := env.svc.CreateEvent(context.Background(), projectID, req, buyerEmail)
	require.NoError(t, err)
	return summary
}
