package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"example.com/backstage/services/tenders/config"
	"example.com/backstage/services/tenders/internal/models"
)

// Criterion is an evaluation criterion defined for a lot and event type
type Criterion struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// AgreementsClient reads framework and lot data
type AgreementsClient interface {
	// LotSuppliers returns the organisation ids of every supplier on the lot
	LotSuppliers(ctx context.Context, frameworkID, lotID string) ([]string, error)
	EventCriteria(ctx context.Context, frameworkID, lotID string, eventType models.EventType) ([]Criterion, error)
}

type agreementsClient struct {
	http *jsonClient
}

// NewAgreementsClient creates an agreements service client
func NewAgreementsClient(cfg config.ClientConfig) AgreementsClient {
	return &agreementsClient{http: newJSONClient("agreements", cfg)}
}

type lotSupplier struct {
	Organization struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"organization"`
}

func lotPath(frameworkID, lotID string) string {
	return fmt.Sprintf("/agreements/%s/lots/%s", url.PathEscape(frameworkID), url.PathEscape(lotID))
}

func (c *agreementsClient) LotSuppliers(ctx context.Context, frameworkID, lotID string) ([]string, error) {
	var suppliers []lotSupplier
	if err := c.http.do(ctx, http.MethodGet, lotPath(frameworkID, lotID)+"/suppliers", "", nil, &suppliers); err != nil {
		return nil, classify(err, fmt.Sprintf("lot %s/%s suppliers", frameworkID, lotID), "")
	}
	ids := make([]string, 0, len(suppliers))
	for _, s := range suppliers {
		ids = append(ids, s.Organization.ID)
	}
	return ids, nil
}

func (c *agreementsClient) EventCriteria(ctx context.Context, frameworkID, lotID string, eventType models.EventType) ([]Criterion, error) {
	var criteria []Criterion
	path := lotPath(frameworkID, lotID) + "/event-types/" + url.PathEscape(eventType.String()) + "/criteria"
	if err := c.http.do(ctx, http.MethodGet, path, "", nil, &criteria); err != nil {
		return nil, classify(err, fmt.Sprintf("%s criteria for lot %s/%s", eventType, frameworkID, lotID), "")
	}
	return criteria, nil
}
