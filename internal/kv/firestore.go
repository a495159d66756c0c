package kv

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultCollection = "kv"

type firestoreStore struct {
	client     *firestore.Client
	collection string
}

type firestoreEntry struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// NewFirestoreStore stores each key as a document in collection.
func NewFirestoreStore(client *firestore.Client, collection string) Store {
	if collection == "" {
		collection = defaultCollection
	}
	return &firestoreStore{client: client, collection: collection}
}

func (s *firestoreStore) Get(ctx context.Context, key string) (string, error) {
	doc, err := s.client.Collection(s.collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv: firestore get %s: %w", key, err)
	}

	var entry firestoreEntry
	if err := doc.DataTo(&entry); err != nil {
		return "", fmt.Errorf("kv: unmarshal %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *firestoreStore) Set(ctx context.Context, key, value string) error {
	_, err := s.client.Collection(s.collection).Doc(key).Set(ctx, firestoreEntry{
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kv: firestore set %s: %w", key, err)
	}
	return nil
}

func (s *firestoreStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Collection(s.collection).Doc(key).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("kv: firestore delete %s: %w", key, err)
	}
	return nil
}
