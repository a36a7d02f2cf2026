package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopbot/models"
)

type fakeCatalog struct {
	products []models.Product
	err      error
}

func (f *fakeCatalog) FetchAvailable(context.Context) ([]models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

type fakeHistory struct {
	err      error
	appended chan models.ChatTurn
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{appended: make(chan models.ChatTurn, 10)}
}

func (f *fakeHistory) Append(_ context.Context, turn models.ChatTurn) error {
	f.appended <- turn
	return f.err
}

func (f *fakeHistory) waitForTurn(t *testing.T) models.ChatTurn {
	t.Helper()
	select {
	case turn := <-f.appended:
		return turn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for history append")
		return models.ChatTurn{}
	}
}

func newTestChatService(catalog *fakeCatalog, history *fakeHistory, gen *fakeGenerator) *ChatService {
	return NewChatService(catalog, history, NewSessionRegistry(gen, 0))
}

func TestProcessTurn_ProductQuestionIncludesLinks(t *testing.T) {
	catalog := &fakeCatalog{products: sampleProducts()}
	history := newFakeHistory()
	gen := &fakeGenerator{reply: "The helmet costs $59.99."}
	chat := newTestChatService(catalog, history, gen)

	result, err := chat.ProcessTurn(context.Background(), "s1", "What's the price of the helmet?")
	require.NoError(t, err)

	assert.Equal(t, "The helmet costs $59.99.", result.Response)
	assert.Equal(t, sampleProducts(), result.Products)
	require.Len(t, result.ProductLinks, 2)
	assert.Equal(t, "/product_info/42", result.ProductLinks[0].URL)

	turn := history.waitForTurn(t)
	assert.Equal(t, "s1", turn.SessionID)
	assert.Equal(t, "What's the price of the helmet?", turn.UserMessage)
	assert.Equal(t, "The helmet costs $59.99.", turn.BotResponse)
	assert.Equal(t, BuildProductContext(sampleProducts()), turn.ProductContext)
	assert.Len(t, turn.ProductLinks, 2)
}

func TestProcessTurn_NonProductQuestionOmitsLinks(t *testing.T) {
	catalog := &fakeCatalog{products: sampleProducts()}
	history := newFakeHistory()
	gen := &fakeGenerator{reply: "Try the reset page."}
	chat := newTestChatService(catalog, history, gen)

	result, err := chat.ProcessTurn(context.Background(), "s1", "How do I reset my password?")
	require.NoError(t, err)

	assert.NotNil(t, result.ProductLinks)
	assert.Empty(t, result.ProductLinks)

	turn := history.waitForTurn(t)
	assert.Nil(t, turn.ProductLinks, "links must be absent when not triggered")
}

func TestProcessTurn_ValidatesInput(t *testing.T) {
	chat := newTestChatService(&fakeCatalog{}, newFakeHistory(), &fakeGenerator{reply: "ok"})

	_, err := chat.ProcessTurn(context.Background(), "s1", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = chat.ProcessTurn(context.Background(), "", "hello")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestProcessTurn_EmptyCatalogIsNotAnError(t *testing.T) {
	catalog := &fakeCatalog{products: []models.Product{}}
	history := newFakeHistory()
	gen := &fakeGenerator{reply: "We have nothing in stock right now."}
	chat := newTestChatService(catalog, history, gen)

	result, err := chat.ProcessTurn(context.Background(), "s1", "any products available?")
	require.NoError(t, err)
	assert.Empty(t, result.Products)

	turn := history.waitForTurn(t)
	assert.Equal(t, "Available products:\n", turn.ProductContext)
}

func TestProcessTurn_CatalogFailureAbortsTurn(t *testing.T) {
	catalog := &fakeCatalog{err: fmt.Errorf("%w: connection refused", ErrCatalogUnavailable)}
	history := newFakeHistory()
	gen := &fakeGenerator{reply: "ok"}
	chat := newTestChatService(catalog, history, gen)

	_, err := chat.ProcessTurn(context.Background(), "s1", "hello")
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Equal(t, 0, gen.callCount(), "model must not be called when the catalog fetch fails")
	assert.Empty(t, history.appended)
}

func TestProcessTurn_ModelFailureSkipsPersistence(t *testing.T) {
	catalog := &fakeCatalog{products: sampleProducts()}
	history := newFakeHistory()
	gen := &fakeGenerator{err: fmt.Errorf("%w: status 503", ErrModelUnavailable)}
	chat := newTestChatService(catalog, history, gen)

	_, err := chat.ProcessTurn(context.Background(), "s1", "hello")
	require.ErrorIs(t, err, ErrModelUnavailable)

	select {
	case <-history.appended:
		t.Fatal("no history record may be written for a failed turn")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestProcessTurn_PersistenceFailureIsNonFatal(t *testing.T) {
	catalog := &fakeCatalog{products: sampleProducts()}
	history := newFakeHistory()
	history.err = fmt.Errorf("%w: disk full", ErrPersistence)
	gen := &fakeGenerator{reply: "still answered"}
	chat := newTestChatService(catalog, history, gen)

	result, err := chat.ProcessTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "still answered", result.Response)

	history.waitForTurn(t) // the write was attempted
}

func TestProcessTurn_ConcurrentSessionsDoNotShareModelState(t *testing.T) {
	catalog := &fakeCatalog{products: sampleProducts()}
	history := newFakeHistory()
	gen := &fakeGenerator{reply: "ok"}
	chat := newTestChatService(catalog, history, gen)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("session-%d", n)
			message := fmt.Sprintf("looking for secret-%d", n)
			for j := 0; j < 5; j++ {
				if _, err := chat.ProcessTurn(ctx, sessionID, message); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < gen.callCount(); i++ {
		call := gen.call(i)
		var sawZero, sawOne bool
		for _, content := range call {
			for _, part := range content.Parts {
				if strings.Contains(part.Text, "secret-0") {
					sawZero = true
				}
				if strings.Contains(part.Text, "secret-1") {
					sawOne = true
				}
			}
		}
		assert.False(t, sawZero && sawOne, "call %d observed both sessions' prompts", i)
	}
}
