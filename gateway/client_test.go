package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLink(t *testing.T) {
	var gotParams CreateLinkParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payment_links", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotParams))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Link{
			ID:          "plink_1",
			ShortURL:    "https://pay.example/abc",
			Status:      LinkCreated,
			Amount:      gotParams.Amount,
			ReferenceID: gotParams.ReferenceID,
			Notes:       gotParams.Notes,
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", "secret")
	link, err := c.CreateLink(context.Background(), CreateLinkParams{
		Amount:      25000,
		Currency:    "INR",
		ReferenceID: "ord-1-1",
		Notes:       map[string]string{"referenceId": "ord-1"},
		CallbackURL: "http://localhost:8080/api/payments/callback?order_id=ord-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "plink_1", link.ID)
	assert.Equal(t, LinkCreated, link.Status)
	assert.Equal(t, "get", gotParams.CallbackMethod) // defaulted
	assert.Equal(t, "ord-1", gotParams.Notes["referenceId"])
}

func TestCreateLinkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Reference Id already exists"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", "secret")
	_, err := c.CreateLink(context.Background(), CreateLinkParams{ReferenceID: "dup"})
	require.Error(t, err)

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", gwErr.Code)
	assert.True(t, IsDuplicateReference(err))
}

func TestFetchLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payment_links/plink_9", r.URL.Path)
		json.NewEncoder(w).Encode(Link{ID: "plink_9", Status: LinkPaid})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", "secret")
	link, err := c.FetchLink(context.Background(), "plink_9")
	require.NoError(t, err)
	assert.Equal(t, LinkPaid, link.Status)
}

func TestListLinksByReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ord-1-2", r.URL.Query().Get("reference_id"))
		json.NewEncoder(w).Encode(listBody{Count: 1, Items: []Link{{ID: "plink_2", ReferenceID: "ord-1-2"}}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", "secret")
	links, err := c.ListLinksByReference(context.Background(), "ord-1-2")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "plink_2", links[0].ID)
}

func TestIsDuplicateReference(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate", &Error{Description: "Reference Id already exists"}, true},
		{"other gateway error", &Error{Description: "amount must be positive"}, false},
		{"plain error", assert.AnError, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicateReference(tt.err))
		})
	}
}
