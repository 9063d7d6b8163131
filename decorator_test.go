package twofactor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-twofactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDecorator(inner *MockCredentialValidator, client *MockProviderClient, pairings *MockPairingStore) *twofactor.Decorator {
	return twofactor.NewDecorator(inner, client, pairings, testSettings())
}

func TestValidateCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected by inner validator", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		inner.On("ValidateCredentials", ctx, "bob", "wrong").Return(false, nil).Once()

		decorator := newDecorator(inner, client, pairings)

		result, err := decorator.ValidateCredentials(ctx, "bob", "wrong")
		require.NoError(t, err)
		assert.True(t, result.Denied())

		client.AssertNotCalled(t, "OperationStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("inner validator error propagates", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		inner.On("ValidateCredentials", ctx, "bob", "pw").
			Return(false, errors.New("store down")).Once()

		decorator := newDecorator(inner, client, pairings)

		result, err := decorator.ValidateCredentials(ctx, "bob", "pw")
		require.Error(t, err)
		assert.False(t, result.Authenticated())
	})

	t.Run("unpaired user passes straight through", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		inner.On("ValidateCredentials", ctx, "bob", "pw").Return(true, nil).Once()
		pairings.On("Find", ctx, "bob").Return("", nil).Once()

		decorator := newDecorator(inner, client, pairings)

		result, err := decorator.ValidateCredentials(ctx, "bob", "pw")
		require.NoError(t, err)
		assert.True(t, result.Authenticated())

		client.AssertNotCalled(t, "OperationStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provider off vetoes a valid password", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		inner.On("ValidateCredentials", ctx, "bob", "pw").Return(true, nil).Once()
		pairings.On("Find", ctx, "bob").Return("ACC9", nil).Once()
		client.On("OperationStatus", ctx, "ACC9", "login-op").
			Return(&twofactor.OperationState{Status: twofactor.StatusOff}, nil).Once()

		decorator := newDecorator(inner, client, pairings)

		result, err := decorator.ValidateCredentials(ctx, "bob", "pw")
		require.NoError(t, err)
		assert.True(t, result.Denied())
	})

	t.Run("unknown status values count as a veto", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		inner.On("ValidateCredentials", ctx, "bob", "pw").Return(true, nil).Once()
		pairings.On("Find", ctx, "bob").Return("ACC9", nil).Once()
		client.On("OperationStatus", ctx, "ACC9", "login-op").
			Return(&twofactor.OperationState{Status: "paused"}, nil).Once()

		decorator := newDecorator(inner, client, pairings)

		result, err := decorator.ValidateCredentials(ctx, "bob", "pw")
		require.NoError(t, err)
		assert.True(t, result.Denied())
	})

	t.Run("provider on without token authenticates immediately", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		inner.On("ValidateCredentials", ctx, "bob", "pw").Return(true, nil).Once()
		pairings.On("Find", ctx, "bob").Return("ACC9", nil).Once()
		client.On("OperationStatus", ctx, "ACC9", "login-op").
			Return(&twofactor.OperationState{Status: twofactor.StatusOn}, nil).Once()

		decorator := newDecorator(inner, client, pairings)

		result, err := decorator.ValidateCredentials(ctx, "bob", "pw")
		require.NoError(t, err)
		assert.True(t, result.Authenticated())
		assert.False(t, decorator.Challenges().HasPending("bob"))
	})

	t.Run("provider error fails closed", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		inner.On("ValidateCredentials", ctx, "bob", "pw").Return(true, nil).Once()
		pairings.On("Find", ctx, "bob").Return("ACC9", nil).Once()
		client.On("OperationStatus", ctx, "ACC9", "login-op").
			Return(nil, errors.New("connection refused")).Once()

		decorator := newDecorator(inner, client, pairings)

		result, err := decorator.ValidateCredentials(ctx, "bob", "pw")
		require.Error(t, err)
		assert.False(t, result.Authenticated())
		assert.False(t, decorator.Challenges().HasPending("bob"))
	})

	t.Run("usernames are case normalized", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		inner.On("ValidateCredentials", ctx, "bob", "pw").Return(true, nil).Once()
		pairings.On("Find", ctx, "bob").Return("", nil).Once()

		decorator := newDecorator(inner, client, pairings)

		result, err := decorator.ValidateCredentials(ctx, "  BoB ", "pw")
		require.NoError(t, err)
		assert.True(t, result.Authenticated())

		inner.AssertExpectations(t)
		pairings.AssertExpectations(t)
	})
}

func TestChallengeFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("issued challenge confirms exactly once", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		inner.On("ValidateCredentials", ctx, "alice", "s3cret").Return(true, nil).Once()
		pairings.On("Find", ctx, "alice").Return("ACC1", nil).Once()
		client.On("OperationStatus", ctx, "ACC1", "login-op").
			Return(&twofactor.OperationState{Status: twofactor.StatusOn, ConfirmToken: "773829"}, nil).Once()

		decorator := newDecorator(inner, client, pairings)

		result, err := decorator.ValidateCredentials(ctx, "alice", "s3cret")
		require.NoError(t, err)
		require.True(t, result.ChallengePending())
		require.NotNil(t, result.Challenge)
		assert.Equal(t, "alice", result.Challenge.Username)
		assert.NotEmpty(t, result.Challenge.Reference)

		confirm := decorator.ConfirmChallenge("alice", "773829")
		assert.True(t, confirm.Authenticated())

		again := decorator.ConfirmChallenge("alice", "773829")
		assert.True(t, again.Denied())
	})

	t.Run("wrong token consumes the challenge", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		inner.On("ValidateCredentials", ctx, "alice", "s3cret").Return(true, nil).Once()
		pairings.On("Find", ctx, "alice").Return("ACC1", nil).Once()
		client.On("OperationStatus", ctx, "ACC1", "login-op").
			Return(&twofactor.OperationState{Status: twofactor.StatusOn, ConfirmToken: "773829"}, nil).Once()

		decorator := newDecorator(inner, client, pairings)

		_, err := decorator.ValidateCredentials(ctx, "alice", "s3cret")
		require.NoError(t, err)

		assert.True(t, decorator.ConfirmChallenge("alice", "000000").Denied())
		// the burned challenge cannot be completed with the right token
		assert.True(t, decorator.ConfirmChallenge("alice", "773829").Denied())
	})

	t.Run("reissue invalidates the previous challenge", func(t *testing.T) {
		issueTwice := func(t *testing.T) *twofactor.Decorator {
			inner := new(MockCredentialValidator)
			client := new(MockProviderClient)
			pairings := new(MockPairingStore)

			inner.On("ValidateCredentials", ctx, "alice", "s3cret").Return(true, nil).Twice()
			pairings.On("Find", ctx, "alice").Return("ACC1", nil).Twice()
			client.On("OperationStatus", ctx, "ACC1", "login-op").
				Return(&twofactor.OperationState{Status: twofactor.StatusOn, ConfirmToken: "111111"}, nil).Once()
			client.On("OperationStatus", ctx, "ACC1", "login-op").
				Return(&twofactor.OperationState{Status: twofactor.StatusOn, ConfirmToken: "222222"}, nil).Once()

			decorator := newDecorator(inner, client, pairings)

			_, err := decorator.ValidateCredentials(ctx, "alice", "s3cret")
			require.NoError(t, err)
			_, err = decorator.ValidateCredentials(ctx, "alice", "s3cret")
			require.NoError(t, err)

			return decorator
		}

		t.Run("second token confirms", func(t *testing.T) {
			decorator := issueTwice(t)
			assert.True(t, decorator.ConfirmChallenge("alice", "222222").Authenticated())
		})

		t.Run("first token is stale", func(t *testing.T) {
			decorator := issueTwice(t)
			assert.True(t, decorator.ConfirmChallenge("alice", "111111").Denied())
		})
	})

	t.Run("confirm without a pending challenge is denied", func(t *testing.T) {
		inner := new(MockCredentialValidator)
		client := new(MockProviderClient)
		pairings := new(MockPairingStore)

		decorator := newDecorator(inner, client, pairings)

		assert.True(t, decorator.ConfirmChallenge("nobody", "123456").Denied())
	})
}

func TestDecoratorActivityEvents(t *testing.T) {
	ctx := context.Background()

	inner := new(MockCredentialValidator)
	client := new(MockProviderClient)
	pairings := new(MockPairingStore)
	sink := &capturingSink{}

	inner.On("ValidateCredentials", ctx, "alice", "s3cret").Return(true, nil).Once()
	pairings.On("Find", ctx, "alice").Return("ACC1", nil).Once()
	client.On("OperationStatus", ctx, "ACC1", "login-op").
		Return(&twofactor.OperationState{Status: twofactor.StatusOn, ConfirmToken: "773829"}, nil).Once()

	decorator := newDecorator(inner, client, pairings).WithActivitySink(sink)

	result, err := decorator.ValidateCredentials(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.True(t, result.ChallengePending())

	confirm := decorator.ConfirmChallenge("alice", "773829")
	require.True(t, confirm.Authenticated())

	assert.Equal(t, []twofactor.ActivityEventType{
		twofactor.ActivityEventChallengeIssued,
		twofactor.ActivityEventChallengeConfirmed,
	}, sink.types())
}

func TestAccountIDFor(t *testing.T) {
	ctx := context.Background()

	inner := new(MockCredentialValidator)
	client := new(MockProviderClient)
	pairings := new(MockPairingStore)

	pairings.On("Find", ctx, "alice").Return("ACC1", nil).Once()

	decorator := newDecorator(inner, client, pairings)

	id, err := decorator.AccountIDFor(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "ACC1", id)
}
