package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// datasetCollection holds one document per (user, key) pair
const datasetCollection = "finance-datasets"

// Client wraps the Firestore and Auth clients for the serve mode
type Client struct {
	Firestore *firestore.Client
	Auth      *auth.Client
	projectID string
}

// NewClient creates Firestore and Auth clients via the Firebase app.
// Uses Application Default Credentials unless credsPath is set.
func NewClient(ctx context.Context, projectID, credsPath string) (*Client, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("failed to create Auth client: %w", err)
	}

	return &Client{
		Firestore: firestoreClient,
		Auth:      authClient,
		projectID: projectID,
	}, nil
}

// Close closes the Firestore client
func (c *Client) Close() error {
	return c.Firestore.Close()
}

// datasetRecord is the Firestore document shape for one stored value
type datasetRecord struct {
	Key       string    `firestore:"key"`
	UserID    string    `firestore:"userId"`
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// FirestoreStore is a per-user Store backed by a Firestore collection
type FirestoreStore struct {
	client *Client
	userID string
}

// NewFirestoreStore creates a store scoped to one user's documents
func NewFirestoreStore(client *Client, userID string) (*FirestoreStore, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	return &FirestoreStore{client: client, userID: userID}, nil
}

func (s *FirestoreStore) docID(key string) string {
	return s.userID + ":" + key
}

// Get returns the stored value for key
func (s *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	doc, err := s.client.Firestore.Collection(datasetCollection).Doc(s.docID(key)).Get(ctx)
	if err != nil {
		if doc != nil && !doc.Exists() {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read key %s for user %s: %w", key, s.userID, err)
	}

	var record datasetRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to parse record for key %s: %w", key, err)
	}
	return record.Value, nil
}

// Set stores the value, overwriting any existing document
func (s *FirestoreStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	record := datasetRecord{
		Key:       key,
		UserID:    s.userID,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.client.Firestore.Collection(datasetCollection).Doc(s.docID(key)).Set(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to write key %s for user %s: %w", key, s.userID, err)
	}
	return nil
}

// Delete removes the key's document
func (s *FirestoreStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	docRef := s.client.Firestore.Collection(datasetCollection).Doc(s.docID(key))

	// Firestore deletes are idempotent, so check existence first to
	// honor the ErrNotFound contract
	doc, err := docRef.Get(ctx)
	if err != nil {
		if doc != nil && !doc.Exists() {
			return ErrNotFound
		}
		return fmt.Errorf("failed to check key %s for user %s: %w", key, s.userID, err)
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete key %s for user %s: %w", key, s.userID, err)
	}
	return nil
}

// Keys lists the user's stored keys in lexical order
func (s *FirestoreStore) Keys(ctx context.Context) ([]string, error) {
	iter := s.client.Firestore.Collection(datasetCollection).
		Where("userId", "==", s.userID).
		Documents(ctx)

	keys := []string{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate keys for user %s: %w", s.userID, err)
		}

		var record datasetRecord
		if err := doc.DataTo(&record); err != nil {
			return nil, fmt.Errorf("failed to parse record: %w", err)
		}
		keys = append(keys, record.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op; the shared Client owns the connection
func (s *FirestoreStore) Close() error {
	return nil
}
