package clients

import (
	"context"
	"fmt"
	"net/http"

	"example.com/backstage/services/tenders/config"
	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/models"

	"github.com/pkg/errors"
)

// Assessment is the part of an assessment the event lifecycle needs
type Assessment struct {
	ID             uint   `json:"assessment-id"`
	Status         string `json:"status"`
	ExternalToolID string `json:"external-tool-id,omitempty"`
}

// AssessmentClient creates and reads assessments
type AssessmentClient interface {
	CreateEmptyAssessment(ctx context.Context, frameworkID, lotID string, eventType models.EventType, actor string) (uint, error)
	// GetAssessment also checks that the assessment belongs to actor
	GetAssessment(ctx context.Context, assessmentID uint, actor string) (*Assessment, error)
}

type assessmentClient struct {
	http *jsonClient
}

// NewAssessmentClient creates an assessment service client
func NewAssessmentClient(cfg config.ClientConfig) AssessmentClient {
	return &assessmentClient{http: newJSONClient("assessments", cfg)}
}

type createAssessmentRequest struct {
	FrameworkID string `json:"framework-id"`
	LotID       string `json:"lot-id"`
	EventType   string `json:"event-type"`
}

func (c *assessmentClient) CreateEmptyAssessment(ctx context.Context, frameworkID, lotID string, eventType models.EventType, actor string) (uint, error) {
	var created Assessment
	req := createAssessmentRequest{FrameworkID: frameworkID, LotID: lotID, EventType: eventType.String()}
	if err := c.http.do(ctx, http.MethodPost, "/assessments", actor, req, &created); err != nil {
		return 0, classify(err, "create assessment", actor)
	}
	if created.ID == 0 {
		return 0, apperrors.External(nil, "assessment service returned no assessment id")
	}
	return created.ID, nil
}

func (c *assessmentClient) GetAssessment(ctx context.Context, assessmentID uint, actor string) (*Assessment, error) {
	var assessment Assessment
	path := fmt.Sprintf("/assessments/%d", assessmentID)
	if err := c.http.do(ctx, http.MethodGet, path, actor, nil, &assessment); err != nil {
		return nil, classify(err, fmt.Sprintf("assessment %d", assessmentID), actor)
	}
	return &assessment, nil
}

func classify(err error, what, actor string) error {
	var status *statusError
	if !errors.As(err, &status) {
		return err
	}
	switch status.StatusCode {
	case http.StatusNotFound:
		return apperrors.NotFound("%s not found", what)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Authorisation("%s is not accessible to '%s'", what, actor)
	case http.StatusBadRequest:
		return apperrors.Validation("%s rejected: %s", what, status.Body)
	default:
		return apperrors.External(status, "%s failed", what)
	}
}
