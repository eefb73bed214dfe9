package openapi_test

import (
	"bytes"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-ops/fulfillment-service/pkg/contracts/openapi"
)

const specPath = "../../../docs/openapi.yaml"

func newValidator(t *testing.T) *openapi.Validator {
	t.Helper()
	absPath, err := filepath.Abs(specPath)
	require.NoError(t, err)

	validator, err := openapi.NewValidator(absPath)
	require.NoError(t, err)
	return validator
}

func TestOpenAPISpecIsValid(t *testing.T) {
	validator := newValidator(t)

	doc := validator.GetDocument()
	require.NotNil(t, doc)
	assert.Equal(t, "Fulfillment Service API", doc.Info.Title)
	assert.NotEmpty(t, doc.Info.Version)
}

func TestOpenAPIHasRequiredPaths(t *testing.T) {
	validator := newValidator(t)
	paths := validator.GetPaths()

	required := []string{
		"/api/v1/shipment-requests/{requestId}/confirm",
		"/api/v1/shipment-requests/{requestId}/reject",
		"/api/v1/returns/{returnId}/approve",
		"/api/v1/returns/{returnId}/cancel",
		"/api/v1/returns/{returnId}/receive",
		"/api/v1/returns/{returnId}/ship",
		"/api/v1/returns/{returnId}/close",
		"/api/v1/inventory",
		"/api/v1/inventory/{productId}",
		"/api/v1/inventory/{productId}/restock",
		"/api/v1/inventory/{productId}/recycle",
	}
	for _, path := range required {
		assert.Contains(t, paths, path)
	}
}

func TestValidateConfirmRequest(t *testing.T) {
	validator := newValidator(t)

	body := []byte(`{"confirmedBy":"ops@acme","adminRemarks":"rush order"}`)
	req, err := http.NewRequest(http.MethodPost,
		"http://localhost:8010/api/v1/shipment-requests/req-123/confirm",
		bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	assert.NoError(t, validator.ValidateRequest(req))
}

func TestValidateRequestRejectsMissingFields(t *testing.T) {
	validator := newValidator(t)

	// receive without the required quantity
	body := []byte(`{"receivedBy":"dock@acme"}`)
	req, err := http.NewRequest(http.MethodPost,
		"http://localhost:8010/api/v1/returns/ret-1/receive",
		bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	assert.Error(t, validator.ValidateRequest(req))
}

func TestValidateRequestRejectsUnknownRoute(t *testing.T) {
	validator := newValidator(t)

	req, err := http.NewRequest(http.MethodGet,
		"http://localhost:8010/api/v1/warehouses", nil)
	require.NoError(t, err)

	assert.Error(t, validator.ValidateRequest(req))
}
