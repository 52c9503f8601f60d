package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/backstage/services/tenders/config"
	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/models"

	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) config.ClientConfig {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return config.ClientConfig{BaseURL: srv.URL, Timeout: time.Second}
}

func TestCreateEmptyAssessment(t *testing.T) {
	cfg := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/assessments", r.URL.Path)
		require.Equal(t, "buyer@example.com", r.Header.Get(PrincipalHeader))

		var req createAssessmentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "RM1234", req.FrameworkID)
		require.Equal(t, "FCA", req.EventType)
		_, _ = io.WriteString(w, `{"assessment-id": 42}`)
	})

	id, err := NewAssessmentClient(cfg).CreateEmptyAssessment(context.Background(), "RM1234", "1a", models.EventTypeFCA, "buyer@example.com")
	require.NoError(t, err)
	require.Equal(t, uint(42), id)
}

func TestGetAssessmentErrors(t *testing.T) {
	cases := []struct {
		status int
		kind   apperrors.Kind
	}{
		{http.StatusNotFound, apperrors.KindNotFound},
		{http.StatusForbidden, apperrors.KindAuthorisation},
		{http.StatusUnauthorized, apperrors.KindAuthorisation},
		{http.StatusBadGateway, apperrors.KindExternalSystem},
	}
	for _, tc := range cases {
		cfg := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := NewAssessmentClient(cfg).GetAssessment(context.Background(), 7, "buyer@example.com")
		require.Equal(t, tc.kind, apperrors.KindOf(err), "status %d", tc.status)
	}
}

func TestGetAssessment(t *testing.T) {
	cfg := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/assessments/7", r.URL.Path)
		_, _ = io.WriteString(w, `{"assessment-id": 7, "status": "ACTIVE"}`)
	})

	a, err := NewAssessmentClient(cfg).GetAssessment(context.Background(), 7, "buyer@example.com")
	require.NoError(t, err)
	require.Equal(t, "ACTIVE", a.Status)
}

func TestUnreachableServiceIsExternal(t *testing.T) {
	cfg := config.ClientConfig{BaseURL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond}
	_, err := NewAgreementsClient(cfg).LotSuppliers(context.Background(), "RM1234", "1a")
	require.True(t, apperrors.Is(err, apperrors.KindExternalSystem))
}

func TestLotSuppliers(t *testing.T) {
	cfg := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/agreements/RM1234/lots/1a/suppliers", r.URL.Path)
		_, _ = io.WriteString(w, `[{"organization":{"id":"GB-COH-1","name":"Acme"}},{"organization":{"id":"GB-COH-2"}}]`)
	})

	ids, err := NewAgreementsClient(cfg).LotSuppliers(context.Background(), "RM1234", "1a")
	require.NoError(t, err)
	require.Equal(t, []string{"GB-COH-1", "GB-COH-2"}, ids)
}

func TestEventCriteria(t *testing.T) {
	cfg := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/agreements/RM1234/lots/1a/event-types/RFI/criteria", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":"Criterion 1","title":"Quality"}]`)
	})

	criteria, err := NewAgreementsClient(cfg).EventCriteria(context.Background(), "RM1234", "1a", models.EventTypeRFI)
	require.NoError(t, err)
	require.Equal(t, []Criterion{{ID: "Criterion 1", Title: "Quality"}}, criteria)
}
