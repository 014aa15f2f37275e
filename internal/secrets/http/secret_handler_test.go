package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/lockbox/internal/errors"
	"github.com/allisson/lockbox/internal/identity"
	secretsDomain "github.com/allisson/lockbox/internal/secrets/domain"
	secretsUseCase "github.com/allisson/lockbox/internal/secrets/usecase"
)

type mockSecretUseCase struct {
	mock.Mock
}

func (m *mockSecretUseCase) Create(
	ctx context.Context,
	ident identity.Identity,
	name string,
	plaintext []byte,
) (*secretsDomain.Secret, error) {
	args := m.Called(ctx, ident, name, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.Secret), args.Error(1)
}

func (m *mockSecretUseCase) Reveal(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
) (*secretsDomain.Secret, error) {
	args := m.Called(ctx, ident, secretID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.Secret), args.Error(1)
}

func (m *mockSecretUseCase) Update(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
	input secretsUseCase.UpdateInput,
) (*secretsDomain.Secret, error) {
	args := m.Called(ctx, ident, secretID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.Secret), args.Error(1)
}

func (m *mockSecretUseCase) Delete(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
) error {
	args := m.Called(ctx, ident, secretID)
	return args.Error(0)
}

func (m *mockSecretUseCase) GetMetadata(
	ctx context.Context,
	ident identity.Identity,
	secretID uuid.UUID,
) (*secretsDomain.Secret, error) {
	args := m.Called(ctx, ident, secretID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsDomain.Secret), args.Error(1)
}

func (m *mockSecretUseCase) List(
	ctx context.Context,
	ident identity.Identity,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	args := m.Called(ctx, ident, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*secretsDomain.Secret), args.Error(1)
}

func (m *mockSecretUseCase) Search(
	ctx context.Context,
	ident identity.Identity,
	nameQuery string,
	offset, limit int,
) ([]*secretsDomain.Secret, error) {
	args := m.Called(ctx, ident, nameQuery, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*secretsDomain.Secret), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// setupRouter wires the secret routes the way the server does, with a stub
// middleware injecting the given identity into the request context.
func setupRouter(handler *SecretHandler, ident *identity.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(func(c *gin.Context) {
		if ident != nil {
			ctx := identity.WithIdentity(c.Request.Context(), *ident)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})

	router.POST("/v1/secrets", handler.CreateHandler)
	router.GET("/v1/secrets", handler.ListHandler)
	router.GET("/v1/secrets/search", handler.SearchHandler)
	router.GET("/v1/secrets/:id", handler.GetHandler)
	router.POST("/v1/secrets/:id/reveal", handler.RevealHandler)
	router.PUT("/v1/secrets/:id", handler.UpdateHandler)
	router.DELETE("/v1/secrets/:id", handler.DeleteHandler)

	return router
}

func testSecret(ownerID string) *secretsDomain.Secret {
	now := time.Now().UTC()
	return &secretsDomain.Secret{
		ID:        uuid.Must(uuid.NewV7()),
		OwnerID:   ownerID,
		Name:      "database password",
		Metadata:  map[string]any{"algorithm": "AES-256-GCM"},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSecretHandler_CreateHandler(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Success", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		plaintext := []byte("super-secret")
		secret := testSecret("owner-1")
		useCase.On("Create", mock.Anything, owner, "database password", plaintext).
			Return(secret, nil).Once()

		body := map[string]string{
			"name":  "database password",
			"value": base64.StdEncoding.EncodeToString(plaintext),
		}
		bodyJSON, _ := json.Marshal(body)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/secrets", bytes.NewReader(bodyJSON))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, secret.ID.String(), response["id"])
		assert.Equal(t, "database password", response["name"])
		assert.NotContains(t, w.Body.String(), base64.StdEncoding.EncodeToString(plaintext))
		useCase.AssertExpectations(t)
	})

	t.Run("MissingIdentity", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/secrets", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		useCase.AssertNotCalled(t, "Create")
	})

	t.Run("BlankName", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		body := map[string]string{
			"name":  "   ",
			"value": base64.StdEncoding.EncodeToString([]byte("value")),
		}
		bodyJSON, _ := json.Marshal(body)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/secrets", bytes.NewReader(bodyJSON))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "Create")
	})

	t.Run("InvalidBase64Value", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		body := map[string]string{"name": "database password", "value": "not-base64!!"}
		bodyJSON, _ := json.Marshal(body)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/secrets", bytes.NewReader(bodyJSON))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "Create")
	})
}

func TestSecretHandler_GetHandler(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Success", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secret := testSecret("owner-1")
		useCase.On("GetMetadata", mock.Anything, owner, secret.ID).Return(secret, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/secrets/"+secret.ID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, secret.ID.String(), response["id"])
		assert.NotContains(t, response, "value")
	})

	t.Run("NotFound", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secretID := uuid.Must(uuid.NewV7())
		useCase.On("GetMetadata", mock.Anything, owner, secretID).
			Return(nil, apperrors.ErrNotFound).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/secrets/"+secretID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidUUID", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/secrets/not-a-uuid", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "GetMetadata")
	})
}

func TestSecretHandler_RevealHandler(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Success", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secret := testSecret("owner-1")
		secret.Plaintext = []byte("super-secret")
		useCase.On("Reveal", mock.Anything, owner, secret.ID).Return(secret, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(
			http.MethodPost,
			fmt.Sprintf("/v1/secrets/%s/reveal", secret.ID),
			nil,
		)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("super-secret")), response["value"])
	})

	t.Run("Forbidden", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secretID := uuid.Must(uuid.NewV7())
		useCase.On("Reveal", mock.Anything, owner, secretID).
			Return(nil, apperrors.ErrForbidden).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(
			http.MethodPost,
			fmt.Sprintf("/v1/secrets/%s/reveal", secretID),
			nil,
		)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("IntegrityFailure", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secretID := uuid.Must(uuid.NewV7())
		useCase.On("Reveal", mock.Anything, owner, secretID).
			Return(nil, apperrors.ErrIntegrity).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(
			http.MethodPost,
			fmt.Sprintf("/v1/secrets/%s/reveal", secretID),
			nil,
		)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "integrity_error")
	})
}

func TestSecretHandler_UpdateHandler(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("NameOnly", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secret := testSecret("owner-1")
		secret.Name = "renamed"
		name := "renamed"
		useCase.On("Update", mock.Anything, owner, secret.ID, secretsUseCase.UpdateInput{Name: &name}).
			Return(secret, nil).Once()

		bodyJSON, _ := json.Marshal(map[string]string{"name": "renamed"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(
			http.MethodPut,
			"/v1/secrets/"+secret.ID.String(),
			bytes.NewReader(bodyJSON),
		)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		useCase.AssertExpectations(t)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secretID := uuid.Must(uuid.NewV7())

		w := httptest.NewRecorder()
		req := httptest.NewRequest(
			http.MethodPut,
			"/v1/secrets/"+secretID.String(),
			bytes.NewReader([]byte(`{}`)),
		)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "Update")
	})

	t.Run("ConcurrentUpdateConflict", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secretID := uuid.Must(uuid.NewV7())
		useCase.On("Update", mock.Anything, owner, secretID, mock.Anything).
			Return(nil, apperrors.ErrConflict).Once()

		bodyJSON, _ := json.Marshal(map[string]string{
			"value": base64.StdEncoding.EncodeToString([]byte("new-value")),
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(
			http.MethodPut,
			"/v1/secrets/"+secretID.String(),
			bytes.NewReader(bodyJSON),
		)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSecretHandler_DeleteHandler(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Success", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secretID := uuid.Must(uuid.NewV7())
		useCase.On("Delete", mock.Anything, owner, secretID).Return(nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/v1/secrets/"+secretID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("AlreadyDeleted", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secretID := uuid.Must(uuid.NewV7())
		useCase.On("Delete", mock.Anything, owner, secretID).
			Return(apperrors.ErrNotFound).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/v1/secrets/"+secretID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSecretHandler_ListHandler(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Success", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secrets := []*secretsDomain.Secret{testSecret("owner-1")}
		useCase.On("List", mock.Anything, owner, 0, 50).Return(secrets, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/secrets", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response["data"], 1)
	})

	t.Run("CustomPagination", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		useCase.On("List", mock.Anything, owner, 10, 20).
			Return([]*secretsDomain.Secret{}, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/secrets?offset=10&limit=20", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		useCase.AssertExpectations(t)
	})
}

func TestSecretHandler_SearchHandler(t *testing.T) {
	owner := identity.Identity{SubjectID: "owner-1"}

	t.Run("Success", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		secrets := []*secretsDomain.Secret{testSecret("owner-1")}
		useCase.On("Search", mock.Anything, owner, "database", 0, 50).
			Return(secrets, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/secrets/search?q=database", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("MissingQuery", func(t *testing.T) {
		useCase := &mockSecretUseCase{}
		handler := NewSecretHandler(useCase, testLogger())
		router := setupRouter(handler, &owner)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/secrets/search", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "Search")
	})
}
