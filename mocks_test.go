package twofactor_test

import (
	"context"

	"github.com/goliatone/go-twofactor"
	"github.com/stretchr/testify/mock"
)

// MockCredentialValidator implements twofactor.CredentialValidator
type MockCredentialValidator struct {
	mock.Mock
}

func (m *MockCredentialValidator) ValidateCredentials(ctx context.Context, username, secret string) (bool, error) {
	args := m.Called(ctx, username, secret)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialValidator) ResolveUser(ctx context.Context, username string) (twofactor.UserRecord, error) {
	args := m.Called(ctx, username)
	if rec := args.Get(0); rec != nil {
		return rec.(twofactor.UserRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCredentialValidator) DeleteUser(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// MockProviderClient implements twofactor.ProviderClient
type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) ExchangeToken(ctx context.Context, pairingToken string) (*twofactor.PairingExchange, error) {
	args := m.Called(ctx, pairingToken)
	if ex := args.Get(0); ex != nil {
		return ex.(*twofactor.PairingExchange), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProviderClient) OperationStatus(ctx context.Context, accountID, operationID string) (*twofactor.OperationState, error) {
	args := m.Called(ctx, accountID, operationID)
	if state := args.Get(0); state != nil {
		return state.(*twofactor.OperationState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProviderClient) Release(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

// MockPairingStore implements twofactor.PairingStore
type MockPairingStore struct {
	mock.Mock
}

func (m *MockPairingStore) Load(ctx context.Context) ([]twofactor.PairingRecord, error) {
	args := m.Called(ctx)
	if recs := args.Get(0); recs != nil {
		return recs.([]twofactor.PairingRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPairingStore) Find(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

func (m *MockPairingStore) Upsert(ctx context.Context, username, accountID string) error {
	args := m.Called(ctx, username, accountID)
	return args.Error(0)
}

func (m *MockPairingStore) Clear(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// testUserRecord is a simple UserRecord for tests
type testUserRecord struct {
	id       string
	username string
	email    string
}

func (t testUserRecord) ID() string       { return t.id }
func (t testUserRecord) Username() string { return t.username }
func (t testUserRecord) Email() string    { return t.email }

// capturingSink collects activity events
type capturingSink struct {
	events []twofactor.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt twofactor.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) types() []twofactor.ActivityEventType {
	out := make([]twofactor.ActivityEventType, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.EventType)
	}
	return out
}

// testSettings is the Config used across tests
func testSettings() twofactor.Settings {
	return twofactor.Settings{
		AppID:                    "test-app-id-0001",
		AppSecret:                "test-app-secret-0001",
		APIHost:                  "https://latch.example.com",
		OperationID:              "login-op",
		ChallengeSigningKey:      "test-signing-key",
		ChallengeTokenExpiration: 5,
	}
}
