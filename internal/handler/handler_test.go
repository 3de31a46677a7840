package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"geopolitics-server/internal/models"
	"geopolitics-server/internal/service"
	"geopolitics-server/internal/speech"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGameService struct{ mock.Mock }

func (m *mockGameService) StartGame(ctx context.Context, input service.StartGameInput) (*models.GameView, error) {
	args := m.Called(ctx, input)
	v, _ := args.Get(0).(*models.GameView)
	return v, args.Error(1)
}

func (m *mockGameService) MakeDecision(ctx context.Context, gameID int64, choiceIndex int) (*service.DecisionResult, error) {
	args := m.Called(ctx, gameID, choiceIndex)
	v, _ := args.Get(0).(*service.DecisionResult)
	return v, args.Error(1)
}

func (m *mockGameService) GetGame(ctx context.Context, gameID int64) (*models.GameView, error) {
	args := m.Called(ctx, gameID)
	v, _ := args.Get(0).(*models.GameView)
	return v, args.Error(1)
}

func (m *mockGameService) ListGames(ctx context.Context) ([]models.GameSummary, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]models.GameSummary)
	return v, args.Error(1)
}

func (m *mockGameService) DeleteGame(ctx context.Context, gameID int64) error {
	return m.Called(ctx, gameID).Error(0)
}

func (m *mockGameService) InferenceHealthy(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, username, password string) (*models.User, *models.TokenDetails, error) {
	args := m.Called(ctx, username, password)
	u, _ := args.Get(0).(*models.User)
	td, _ := args.Get(1).(*models.TokenDetails)
	return u, td, args.Error(2)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*models.User, *models.TokenDetails, error) {
	args := m.Called(ctx, username, password)
	u, _ := args.Get(0).(*models.User)
	td, _ := args.Get(1).(*models.TokenDetails)
	return u, td, args.Error(2)
}

func (m *mockAuthService) VerifyToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	args := m.Called(ctx, tokenString)
	c, _ := args.Get(0).(*models.Claims)
	return c, args.Error(1)
}

func (m *mockAuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockAuthService) Logout(ctx context.Context, tokenID string) error {
	return m.Called(ctx, tokenID).Error(0)
}

type mockSpeech struct{ mock.Mock }

func (m *mockSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	args := m.Called(ctx, text)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

type testServer struct {
	router *gin.Engine
	games  *mockGameService
	auth   *mockAuthService
	speech *mockSpeech
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts := &testServer{games: &mockGameService{}, auth: &mockAuthService{}, speech: &mockSpeech{}}
	t.Cleanup(func() {
		ts.games.AssertExpectations(t)
		ts.auth.AssertExpectations(t)
		ts.speech.AssertExpectations(t)
	})
	ts.router = gin.New()
	NewHandler(ts.games, ts.auth, ts.speech, zap.NewNop()).RegisterRoutes(ts.router, nil)
	return ts
}

func (ts *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func sampleView() *models.GameView {
	return &models.GameView{
		GameID:      12,
		Country:     "France",
		CurrentDate: "1805",
		Stats:       models.Stats{Gold: 1000, Stability: 60, Army: 50000, Population: 1000000, Diplomacy: 50},
		Narrative:   "Austerlitz approche.",
		Choices:     []models.ChoiceOption{{Index: 0, Text: "Attaquer", RiskLevel: models.RiskHigh}},
	}
}

func displayErr(sentinel error, message string) error {
	return &service.DisplayError{Message: message, Err: sentinel}
}

func TestRootAndHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","message":"Geopolitical Simulation API"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestInferenceHealth(t *testing.T) {
	ts := newTestServer(t)
	ts.games.On("InferenceHealthy", mock.Anything).Return(true).Once()
	ts.games.On("InferenceHealthy", mock.Anything).Return(false).Once()

	w := ts.do(http.MethodGet, "/health/ollama", "")
	assert.JSONEq(t, `{"status":"ok","message":"Ollama is running"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/health/ollama", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Ollama is not available. Run 'ollama serve' to start it."}`, w.Body.String())
}

func TestStartGame(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t)
		ts.games.On("StartGame", mock.Anything, mock.MatchedBy(func(in service.StartGameInput) bool {
			return in.Country == "France" && in.Year == 1805 && in.UserID != nil && *in.UserID == 4
		})).Return(sampleView(), nil).Once()

		w := ts.do(http.MethodPost, "/start_game", `{"country":"France","year":1805,"user_id":4}`)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		game := body["game"].(map[string]any)
		assert.Equal(t, float64(12), game["game_id"])
		assert.Len(t, game["stats"].(map[string]any), 5)
		assert.NotContains(t, body, "error")
	})

	t.Run("inference down is a 200 failure", func(t *testing.T) {
		ts := newTestServer(t)
		msg := "Ollama n'est pas disponible. Démarrez-le avec 'ollama serve' puis 'ollama run mistral' (ou un autre modèle)."
		ts.games.On("StartGame", mock.Anything, mock.Anything).Return(nil, displayErr(service.ErrInferenceUnavailable, msg))

		w := ts.do(http.MethodPost, "/start_game", `{"country":"France","year":1805}`)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, msg, body["error"])
		assert.NotContains(t, body, "game")
	})

	t.Run("internal error is not disclosed", func(t *testing.T) {
		ts := newTestServer(t)
		ts.games.On("StartGame", mock.Anything, mock.Anything).Return(nil, errors.New("pq: connection refused on 10.0.0.3"))

		w := ts.do(http.MethodPost, "/start_game", `{"country":"France","year":1805}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"Erreur serveur: erreur interne"}`, w.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodPost, "/start_game", `{"country":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["detail"], "Requête invalide")
	})

	t.Run("missing year", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodPost, "/start_game", `{"country":"France"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["detail"], "year (required)")
	})

	t.Run("bearer user wins over body", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("VerifyToken", mock.Anything, "tok").
			Return(&models.Claims{UserID: 9, RegisteredClaims: jwt.RegisteredClaims{ID: "jti"}}, nil)
		ts.games.On("StartGame", mock.Anything, mock.MatchedBy(func(in service.StartGameInput) bool {
			return in.UserID != nil && *in.UserID == 9
		})).Return(sampleView(), nil)

		w := ts.do(http.MethodPost, "/start_game", `{"country":"France","year":1805,"user_id":4}`, "Authorization", "Bearer tok")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("expired bearer plays anonymously", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("VerifyToken", mock.Anything, "old").Return(nil, models.ErrTokenExpired)
		ts.games.On("StartGame", mock.Anything, mock.MatchedBy(func(in service.StartGameInput) bool {
			return in.UserID != nil && *in.UserID == 4
		})).Return(sampleView(), nil)

		w := ts.do(http.MethodPost, "/start_game", `{"country":"France","year":1805,"user_id":4}`, "Authorization", "Bearer old")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["success"])
	})
}

func TestMakeDecision(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t)
		event := "Peste"
		ts.games.On("MakeDecision", mock.Anything, int64(12), 0).Return(&service.DecisionResult{
			Game:             *sampleView(),
			OutcomeNarrative: "Victoire.",
			StatChanges:      map[string]int{"gold": -200},
			Event:            &event,
		}, nil)

		w := ts.do(http.MethodPost, "/make_decision", `{"game_id":12,"choice_index":0}`)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Victoire.", body["outcome_narrative"])
		assert.Equal(t, map[string]any{"gold": float64(-200)}, body["stat_changes"])
		assert.Equal(t, "Peste", body["event"])
	})

	t.Run("invalid choice", func(t *testing.T) {
		ts := newTestServer(t)
		ts.games.On("MakeDecision", mock.Anything, int64(12), 3).Return(nil, displayErr(service.ErrInvalidChoice, "Choix invalide"))

		w := ts.do(http.MethodPost, "/make_decision", `{"game_id":12,"choice_index":3}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"Choix invalide"}`, w.Body.String())
	})

	t.Run("missing choice index", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodPost, "/make_decision", `{"game_id":12}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["detail"], "choice_index")
	})
}

func TestGamesEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.games.On("GetGame", mock.Anything, int64(12)).Return(sampleView(), nil)
	ts.games.On("GetGame", mock.Anything, int64(404)).Return(nil, displayErr(models.ErrGameNotFound, "Partie non trouvée"))
	ts.games.On("ListGames", mock.Anything).Return([]models.GameSummary{{ID: 12, Country: "France", CurrentDate: "1805"}}, nil)
	ts.games.On("DeleteGame", mock.Anything, int64(12)).Return(nil)
	ts.games.On("DeleteGame", mock.Anything, int64(404)).Return(displayErr(models.ErrGameNotFound, "Partie non trouvée"))

	w := ts.do(http.MethodGet, "/games/12", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Austerlitz approche.", decodeBody(t, w)["narrative"])

	w = ts.do(http.MethodGet, "/games/404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Partie non trouvée"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/games/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/games", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "1805", list[0]["current_date"])

	w = ts.do(http.MethodDelete, "/games/12", "")
	assert.JSONEq(t, `{"success":true,"message":"Partie supprimée"}`, w.Body.String())

	w = ts.do(http.MethodDelete, "/games/404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthEndpoints(t *testing.T) {
	t.Run("register validation", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("Register", mock.Anything, "ab", "xxxx").
			Return(nil, nil, displayErr(service.ErrInvalidInput, "Nom d'utilisateur trop court (min 3 caractères)"))

		w := ts.do(http.MethodPost, "/auth/register", `{"username":"ab","password":"xxxx"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"detail":"Nom d'utilisateur trop court (min 3 caractères)"}`, w.Body.String())
	})

	t.Run("register duplicate", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("Register", mock.Anything, "alice", "xxxx").
			Return(nil, nil, displayErr(models.ErrUserAlreadyExists, "Ce nom d'utilisateur existe déjà"))

		w := ts.do(http.MethodPost, "/auth/register", `{"username":"alice","password":"xxxx"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("register success", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("Register", mock.Anything, "alice", "xxxx").
			Return(&models.User{ID: 3, Username: "alice"}, &models.TokenDetails{Token: "signed"}, nil)

		w := ts.do(http.MethodPost, "/auth/register", `{"username":"alice","password":"xxxx"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"user":{"id":3,"username":"alice"},"token":"signed"}`, w.Body.String())
	})

	t.Run("login failure", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("Login", mock.Anything, "alice", "bad").
			Return(nil, nil, displayErr(models.ErrInvalidCredentials, "Identifiants incorrects"))

		w := ts.do(http.MethodPost, "/auth/login", `{"username":"alice","password":"bad"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"detail":"Identifiants incorrects"}`, w.Body.String())
	})

	t.Run("me by query", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("GetUser", mock.Anything, int64(3)).Return(&models.User{ID: 3, Username: "alice"}, nil)
		ts.auth.On("GetUser", mock.Anything, int64(9)).Return(nil, displayErr(models.ErrUserNotFound, "Utilisateur non trouvé"))

		w := ts.do(http.MethodGet, "/auth/me?user_id=3", "")
		assert.JSONEq(t, `{"id":3,"username":"alice"}`, w.Body.String())

		w = ts.do(http.MethodGet, "/auth/me?user_id=9", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"detail":"Utilisateur non trouvé"}`, w.Body.String())
	})

	t.Run("me without query needs a token", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodGet, "/auth/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout", func(t *testing.T) {
		ts := newTestServer(t)
		ts.auth.On("VerifyToken", mock.Anything, "tok").
			Return(&models.Claims{UserID: 3, RegisteredClaims: jwt.RegisteredClaims{ID: "jti-3"}}, nil)
		ts.auth.On("Logout", mock.Anything, "jti-3").Return(nil).Once()

		w := ts.do(http.MethodPost, "/auth/logout", "", "Authorization", "Bearer tok")
		assert.JSONEq(t, `{"success":true}`, w.Body.String())

		w = ts.do(http.MethodPost, "/auth/logout", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTextToSpeech(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		text       string
		audio      []byte
		err        error
		wantStatus int
		wantDetail string
	}{
		{name: "empty text", body: `{}`, text: "", err: speech.ErrEmptyText, wantStatus: http.StatusBadRequest, wantDetail: "Text is required"},
		{name: "model missing", body: `{"text":"Bonjour"}`, text: "Bonjour", err: fmt.Errorf("%w: /models/fr.onnx", speech.ErrModelNotFound), wantStatus: http.StatusInternalServerError, wantDetail: "TTS model not available. Please download the French voice model."},
		{name: "generation failed", body: `{"text":"Bonjour"}`, text: "Bonjour", err: fmt.Errorf("%w: exit 1", speech.ErrSynthesisFailed), wantStatus: http.StatusInternalServerError, wantDetail: "TTS generation failed: speech synthesis failed: exit 1"},
		{name: "success", body: `{"text":"Bonjour"}`, text: "Bonjour", audio: []byte("RIFF...."), wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.speech.On("Synthesize", mock.Anything, tt.text).Return(tt.audio, tt.err)

			w := ts.do(http.MethodPost, "/tts", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, decodeBody(t, w)["detail"])
				return
			}
			assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
			assert.Equal(t, "inline; filename=speech.wav", w.Header().Get("Content-Disposition"))
			assert.Equal(t, tt.audio, w.Body.Bytes())
		})
	}
}
