package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"relay-backend/application/ports"
	"relay-backend/application/services"
	"relay-backend/infrastructure/persistence/memory"
	"relay-backend/interfaces/http/rest"
	"relay-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noopBroadcaster struct{}

func (noopBroadcaster) PublishMessage(ctx context.Context, payload ports.MessagePayload) error {
	return nil
}

func (noopBroadcaster) PublishTyping(ctx context.Context, payload ports.TypingPayload) error {
	return nil
}

func (noopBroadcaster) ReportSendError(ctx context.Context, senderEmail, message string) {}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	conversations := memory.NewConversationRepository(store)
	participants := memory.NewParticipantRepository(store)
	messages := memory.NewMessageRepository(store)
	uowFactory := memory.NewUnitOfWorkFactory(store)

	logger := zap.NewNop()
	metrics := observability.NewMetrics("httptest")
	identity := services.NewIdentityService(users, logger)
	convService := services.NewConversationService(conversations, participants, identity, uowFactory, nil, logger)
	msgService := services.NewMessageService(conversations, participants, users, messages, uowFactory, nil, noopBroadcaster{}, nil, metrics, logger)

	router := rest.NewRouter(convService, msgService, nil, metrics, logger, false)
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var parsed apiResponse
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	}
	return resp, parsed
}

func createConversation(t *testing.T, srv *httptest.Server, emails ...string) string {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/conversations", map[string]interface{}{
		"type":               "GROUP",
		"title":              "test conversation",
		"participant_emails": emails,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var view struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &view))
	return view.ID
}

func TestCreateConversationEndpoint(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		payload    map[string]interface{}
		wantStatus int
	}{
		{
			name: "valid group",
			payload: map[string]interface{}{
				"type":               "GROUP",
				"participant_emails": []string{"alice@example.com", "bob@example.com"},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing type",
			payload: map[string]interface{}{
				"participant_emails": []string{"alice@example.com"},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "no participants",
			payload: map[string]interface{}{
				"type": "DIRECT",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "bad email",
			payload: map[string]interface{}{
				"type":               "GROUP",
				"participant_emails": []string{"not-an-email"},
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/conversations", tt.payload)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestConversationLifecycleEndpoints(t *testing.T) {
	srv := newTestServer(t)
	convID := createConversation(t, srv, "alice@example.com", "bob@example.com")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/conversations/"+convID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		ParticipantEmails []string `json:"participant_emails"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &view))
	assert.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, view.ParticipantEmails)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/conversations?email=alice@example.com", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/conversations", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/conversations/"+convID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/conversations/"+convID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestParticipantEndpoints(t *testing.T) {
	srv := newTestServer(t)
	convID := createConversation(t, srv, "alice@example.com")
	base := srv.URL + "/api/v1/conversations/" + convID + "/participants"

	resp, _ := doJSON(t, http.MethodPost, base, map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, base, map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "ALREADY_MEMBER", body.Error.Code)

	resp, _ = doJSON(t, http.MethodDelete, base+"/bob@example.com", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodDelete, base+"/bob@example.com", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "NOT_MEMBER", body.Error.Code)
}

func TestMessageEndpoints(t *testing.T) {
	srv := newTestServer(t)
	convID := createConversation(t, srv, "alice@example.com", "bob@example.com")
	base := srv.URL + "/api/v1/conversations/" + convID + "/messages"

	for i := 1; i <= 3; i++ {
		resp, _ := doJSON(t, http.MethodPost, base, map[string]string{
			"sender_email": "alice@example.com",
			"content":      fmt.Sprintf("m%d", i),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	// an unknown sender is rejected before the membership check
	resp, body := doJSON(t, http.MethodPost, base, map[string]string{
		"sender_email": "carol@example.com",
		"content":      "hi",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, body.Error)

	resp, body = doJSON(t, http.MethodGet, base+"?page=0&size=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page []struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &page))
	require.Len(t, page, 2)
	assert.Equal(t, "m3", page[0].Content)
	assert.Equal(t, "m2", page[1].Content)

	resp, body = doJSON(t, http.MethodGet, base+"/all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []struct {
		ID        string `json:"id"`
		Content   string `json:"content"`
		CreatedAt string `json:"created_at"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &all))
	require.Len(t, all, 3)

	// soft delete the newest message via its composite key
	resp, _ = doJSON(t, http.MethodDelete, base+"/"+all[0].ID, map[string]string{
		"created_at": all[0].CreatedAt,
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, base+"/all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body.Data, &all))
	assert.Len(t, all, 2)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
