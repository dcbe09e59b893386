package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/citymate-bot/citymate/internal/bot/keyboard"
	"github.com/citymate-bot/citymate/internal/domain"
	apperrors "github.com/citymate-bot/citymate/internal/errors"
	"github.com/citymate-bot/citymate/internal/gateway"
	"github.com/citymate-bot/citymate/internal/provider"
	"github.com/citymate-bot/citymate/internal/repository"
	"github.com/citymate-bot/citymate/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) Get(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*domain.UserProfile)
	return profile, args.Error(1)
}

func (m *mockProfiles) Upsert(ctx context.Context, userID int64, city string) error {
	args := m.Called(ctx, userID, city)
	return args.Error(0)
}

type fakeResolver struct {
	city string
	err  error
}

func (f *fakeResolver) CityOf(context.Context, int64) (string, error) {
	return f.city, f.err
}

type fakeGeocoder struct {
	err error
}

func (f *fakeGeocoder) Coordinates(context.Context, string) (float64, float64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return 53.2, 50.15, nil
}

type fakeWeather struct {
	snapshot provider.WeatherSnapshot
	err      error
}

func (f *fakeWeather) Forecast(context.Context, float64, float64, provider.Day) (provider.WeatherSnapshot, error) {
	return f.snapshot, f.err
}

type fakeTraffic struct {
	level int
}

func (f *fakeTraffic) Level(context.Context, float64, float64) int {
	return f.level
}

type fakeCurrency struct {
	rates []provider.Rate
	err   error
}

func (f *fakeCurrency) Rates(context.Context) ([]provider.Rate, error) {
	return f.rates, f.err
}

type fakeEvents struct {
	events []provider.Event
	err    error
}

func (f *fakeEvents) List(context.Context, string, provider.Day) ([]provider.Event, error) {
	return f.events, f.err
}

type fakeCatalog map[string]string

func (f fakeCatalog) Slug(city string) (string, bool) {
	slug, ok := f[city]
	return slug, ok
}

type sentMessage struct {
	userID int64
	text   string
	kb     *keyboard.Keyboard
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingSender) Send(userID int64, text string, kb *keyboard.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent = append(r.sent, sentMessage{userID: userID, text: text, kb: kb})
	return nil
}

func (r *recordingSender) texts(userID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, msg := range r.sent {
		if msg.userID == userID {
			out = append(out, msg.text)
		}
	}
	return out
}

type engineFixture struct {
	engine   *Engine
	storage  *state.MemoryStorage
	profiles *mockProfiles
	sender   *recordingSender
	deps     *Deps
}

func newEngineFixture(t *testing.T, mutate func(*Deps)) *engineFixture {
	t.Helper()

	storage := state.NewMemoryStorage()
	profiles := &mockProfiles{}
	sender := &recordingSender{}

	deps := Deps{
		Storage:  storage,
		Profiles: profiles,
		Resolver: &fakeResolver{err: gateway.ErrNoCity},
		Geocoder: &fakeGeocoder{},
		Weather: &fakeWeather{snapshot: provider.WeatherSnapshot{
			Description: "ясно", Temp: 21.5, FeelsLike: 20.0, Humidity: 40, WindSpeed: 2.0,
		}},
		Traffic:     &fakeTraffic{level: 4},
		Currency:    &fakeCurrency{rates: []provider.Rate{{Code: "USD", Name: "Доллар США", Value: 90.91}}},
		Events:      &fakeEvents{events: []provider.Event{{Title: "Концерт", Price: "бесплатно", Link: "https://x"}}},
		Catalog:     fakeCatalog{"самара": "smr"},
		Sender:      sender,
		Errors:      apperrors.NewHandler(testLogger(), false),
		Log:         testLogger(),
		CallTimeout: time.Second,
	}
	if mutate != nil {
		mutate(&deps)
	}

	return &engineFixture{
		engine:   NewEngine(deps),
		storage:  storage,
		profiles: profiles,
		sender:   sender,
		deps:     &deps,
	}
}

func (f *engineFixture) currentState(t *testing.T, userID int64) state.State {
	t.Helper()

	conv, err := f.deps.Storage.Get(context.Background(), userID)
	require.NoError(t, err)
	return conv.Current
}

func TestEngine_OnboardingExistingProfileGoesToMain(t *testing.T) {
	fx := newEngineFixture(t, nil)
	fx.profiles.On("Get", mock.Anything, int64(1)).
		Return(&domain.UserProfile{UserID: 1, City: "самара"}, nil).Once()

	require.NoError(t, fx.engine.HandleMessage(context.Background(), 1, "начать"))

	assert.Equal(t, state.StateMain, fx.currentState(t, 1))
	texts := fx.sender.texts(1)
	require.Len(t, texts, 1)
	assert.Equal(t, "Выберите действие:", texts[0])
	fx.profiles.AssertExpectations(t)
}

func TestEngine_OnboardingResolvedCityAsksForConfirmation(t *testing.T) {
	fx := newEngineFixture(t, func(d *Deps) {
		d.Resolver = &fakeResolver{city: "Казань"}
	})
	fx.profiles.On("Get", mock.Anything, int64(2)).
		Return(nil, repository.ErrProfileNotFound).Once()

	require.NoError(t, fx.engine.HandleMessage(context.Background(), 2, "/start"))

	assert.Equal(t, state.StateConfirmCity, fx.currentState(t, 2))

	conv, err := fx.deps.Storage.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Казань", conv.PendingCity)

	texts := fx.sender.texts(2)
	require.Len(t, texts, 1)
	assert.Equal(t, "Ваш город - Казань, верно?", texts[0])
}

func TestEngine_OnboardingNoCityFallsThroughToFreeText(t *testing.T) {
	fx := newEngineFixture(t, nil)
	fx.profiles.On("Get", mock.Anything, int64(3)).
		Return(nil, repository.ErrProfileNotFound).Once()

	require.NoError(t, fx.engine.HandleMessage(context.Background(), 3, "начать"))

	assert.Equal(t, state.StateChooseCity, fx.currentState(t, 3))
	texts := fx.sender.texts(3)
	require.Len(t, texts, 1)
	assert.Equal(t, "Пожалуйста, укажите ваш город", texts[0])
}

func TestEngine_FullWeatherFlow(t *testing.T) {
	fx := newEngineFixture(t, nil)
	userID := int64(4)

	fx.profiles.On("Get", mock.Anything, userID).
		Return(nil, repository.ErrProfileNotFound).Once()
	fx.profiles.On("Upsert", mock.Anything, userID, "Самара").Return(nil).Once()
	fx.profiles.On("Get", mock.Anything, userID).
		Return(&domain.UserProfile{UserID: userID, City: "Самара"}, nil)

	ctx := context.Background()
	require.NoError(t, fx.engine.HandleMessage(ctx, userID, "начать"))
	require.NoError(t, fx.engine.HandleMessage(ctx, userID, "Самара"))
	require.NoError(t, fx.engine.HandleMessage(ctx, userID, "погода"))

	assert.Equal(t, state.StateWeatherDay, fx.currentState(t, userID))

	require.NoError(t, fx.engine.HandleMessage(ctx, userID, "сегодня"))

	assert.Equal(t, state.StateMain, fx.currentState(t, userID))

	texts := fx.sender.texts(userID)
	require.NotEmpty(t, texts)

	var weatherText string
	for _, text := range texts {
		if strings.Contains(text, "Температура") {
			weatherText = text
		}
	}
	assert.Contains(t, weatherText, "Ясно")
	assert.Contains(t, weatherText, "21.5")
	fx.profiles.AssertExpectations(t)
}

func TestEngine_ProviderFailureLandsInMain(t *testing.T) {
	fx := newEngineFixture(t, func(d *Deps) {
		d.Weather = &fakeWeather{err: apperrors.NewProviderUnreachableError("weather", errors.New("dial tcp: timeout"))}
	})
	userID := int64(5)

	fx.profiles.On("Get", mock.Anything, userID).
		Return(&domain.UserProfile{UserID: userID, City: "самара"}, nil)

	ctx := context.Background()
	require.NoError(t, fx.deps.Storage.Set(ctx, userID, &state.Context{
		UserID: userID, Current: state.StateWeatherDay, PendingQuery: state.QueryWeather,
	}))

	require.NoError(t, fx.engine.HandleMessage(ctx, userID, "завтра"))

	assert.Equal(t, state.StateMain, fx.currentState(t, userID))
	texts := fx.sender.texts(userID)
	assert.Contains(t, texts, "Что-то пошло не так...")
	assert.Contains(t, texts, "Выберите действие:")
}

func TestEngine_PersistFailureRevertsState(t *testing.T) {
	fx := newEngineFixture(t, nil)
	userID := int64(6)

	dbErr := errors.New("connection refused")
	fx.profiles.On("Upsert", mock.Anything, userID, "Тверь").Return(dbErr)

	ctx := context.Background()
	require.NoError(t, fx.deps.Storage.Set(ctx, userID, &state.Context{
		UserID: userID, Current: state.StateChooseCity,
	}))

	require.NoError(t, fx.engine.HandleMessage(ctx, userID, "Тверь"))

	// The transition is not committed, so the user can simply retry.
	assert.Equal(t, state.StateChooseCity, fx.currentState(t, userID))
	texts := fx.sender.texts(userID)
	require.Len(t, texts, 1)
	assert.Equal(t, "Временная проблема, попробуйте позже", texts[0])
}

func TestEngine_EventsCityNotInCatalog(t *testing.T) {
	fx := newEngineFixture(t, nil)
	userID := int64(7)

	fx.profiles.On("Get", mock.Anything, userID).
		Return(&domain.UserProfile{UserID: userID, City: "Глухово"}, nil)

	ctx := context.Background()
	require.NoError(t, fx.deps.Storage.Set(ctx, userID, &state.Context{
		UserID: userID, Current: state.StateEventsDay, PendingQuery: state.QueryEvents,
	}))

	require.NoError(t, fx.engine.HandleMessage(ctx, userID, "сегодня"))

	assert.Equal(t, state.StateMain, fx.currentState(t, userID))
	assert.Contains(t, fx.sender.texts(userID), "К сожалению, для этого города события недоступны")
}

func TestEngine_UsersAreIsolated(t *testing.T) {
	fx := newEngineFixture(t, nil)
	ctx := context.Background()

	const users = 10
	for i := 1; i <= users; i++ {
		userID := int64(i)
		fx.profiles.On("Get", mock.Anything, userID).
			Return(&domain.UserProfile{UserID: userID, City: "самара"}, nil)
		require.NoError(t, fx.deps.Storage.Set(ctx, userID, &state.Context{
			UserID: userID, Current: state.StateMain,
		}))
	}

	var wg sync.WaitGroup
	for i := 1; i <= users; i++ {
		userID := int64(i)
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Even users open the weather day prompt; odd users stay in main.
			input := "пробки"
			if userID%2 == 0 {
				input = "погода"
			}
			_ = fx.engine.HandleMessage(ctx, userID, input)
		}()
	}
	wg.Wait()

	for i := 1; i <= users; i++ {
		userID := int64(i)
		expected := state.StateMain
		if userID%2 == 0 {
			expected = state.StateWeatherDay
		}
		assert.Equal(t, expected, fx.currentState(t, userID), "user %d", userID)
	}
}

func TestEngine_SameUserMessagesAreSerialized(t *testing.T) {
	fx := newEngineFixture(t, nil)
	userID := int64(8)
	ctx := context.Background()

	fx.profiles.On("Get", mock.Anything, userID).
		Return(&domain.UserProfile{UserID: userID, City: "самара"}, nil)
	require.NoError(t, fx.deps.Storage.Set(ctx, userID, &state.Context{
		UserID: userID, Current: state.StateMain,
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = fx.engine.HandleMessage(ctx, userID, "пробки")
		}()
	}
	wg.Wait()

	// Every message produced exactly two replies: the traffic level and the
	// main menu prompt.
	assert.Len(t, fx.sender.texts(userID), 40)
	assert.Equal(t, state.StateMain, fx.currentState(t, userID))
}

func TestEngine_UnknownUserStartsFromScratch(t *testing.T) {
	fx := newEngineFixture(t, nil)
	userID := int64(9)

	fx.profiles.On("Get", mock.Anything, userID).
		Return(nil, repository.ErrProfileNotFound).Once()

	// No stored context at all: the engine must treat the user as new.
	require.NoError(t, fx.engine.HandleMessage(context.Background(), userID, "начать"))
	assert.Equal(t, state.StateChooseCity, fx.currentState(t, userID))
}

func TestEngine_TrafficReplyUsesProviderLevel(t *testing.T) {
	fx := newEngineFixture(t, func(d *Deps) {
		d.Traffic = &fakeTraffic{level: 9}
	})
	userID := int64(10)

	fx.profiles.On("Get", mock.Anything, userID).
		Return(&domain.UserProfile{UserID: userID, City: "самара"}, nil)

	ctx := context.Background()
	require.NoError(t, fx.deps.Storage.Set(ctx, userID, &state.Context{
		UserID: userID, Current: state.StateMain,
	}))

	require.NoError(t, fx.engine.HandleMessage(ctx, userID, "пробки"))

	assert.Contains(t, fx.sender.texts(userID), fmt.Sprintf("Текущий уровень пробок: %d", 9))
}
