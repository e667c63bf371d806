package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession(t *testing.T) *Session {
	t.Helper()
	s := New()
	require.NoError(t, s.Begin("sunny morning"))
	require.NoError(t, s.Commit("pl", "https://example.com/pl", "Vibelist: sunny morning", []string{"a", "b"}))
	require.NoError(t, s.Refine("acoustic", []string{"c"}))
	return s
}

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	s := sampleSession(t)
	require.NoError(t, store.Put(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, StateRefining, got.State)
	assert.Equal(t, s.TrackIDs, got.TrackIDs)
	assert.Equal(t, s.Refinements, got.Refinements)
	assert.Equal(t, s.EffectiveVibe("x"), got.EffectiveVibe("x"))
	assert.True(t, s.UpdatedAt.Equal(got.UpdatedAt))

	// Mutating the loaded copy does not change the stored value.
	_, err = got.Remove("a")
	require.NoError(t, err)
	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, again.Has("a"))

	require.NoError(t, store.Put(ctx, got))
	again, err = store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, again.Has("a"))

	require.NoError(t, store.Delete(ctx, s.ID))
	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testStore(t, store)
	assert.Zero(t, store.Len())
}

func TestBadgerStore(t *testing.T) {
	db, err := OpenBadger("")
	require.NoError(t, err)
	defer db.Close()

	testStore(t, NewBadgerStore(db, time.Hour))
}

func TestBadgerStorePersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := sampleSession(t)

	db, err := OpenBadger(dir)
	require.NoError(t, err)
	require.NoError(t, NewBadgerStore(db, 0).Put(ctx, s))
	require.NoError(t, db.Close())

	db, err = OpenBadger(dir)
	require.NoError(t, err)
	defer db.Close()
	got, err := NewBadgerStore(db, 0).Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.TrackIDs, got.TrackIDs)
}

// mockDDBClient is an in-memory DynamoDB mock for testing.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(item map[string]types.AttributeValue) string {
	return item["session_id"].(*types.AttributeValueMemberS).Value
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[keyOf(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &dynamodb.GetItemOutput{Item: m.items[keyOf(params.Key)]}, nil
}

func (m *mockDDBClient) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, keyOf(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStore(t *testing.T) {
	testStore(t, NewDynamoStore(newMockDDBClient(), "sessions", 0))
}

func TestDynamoStoreExpiry(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	store := NewDynamoStore(client, "sessions", time.Minute)

	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	s := sampleSession(t)
	require.NoError(t, store.Put(ctx, s))

	item := client.items[s.ID]
	assert.Equal(t, "1700000060", item["expires_at"].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "go-json", item["codec"].(*types.AttributeValueMemberS).Value)

	_, err := store.Get(ctx, s.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoStoreUnknownCodec(t *testing.T) {
	client := newMockDDBClient()
	client.items["x"] = map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: "x"},
		"codec":      &types.AttributeValueMemberS{Value: "gob"},
		"data":       &types.AttributeValueMemberB{Value: []byte("{}")},
	}
	store := NewDynamoStore(client, "sessions", 0)

	_, err := store.Get(context.Background(), "x")
	assert.ErrorContains(t, err, "gob")
}
