package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig configures the Firestore-backed session store.
type FirestoreConfig struct {
	// ProjectID is the GCP project (required).
	ProjectID string
	// Collection is the Firestore collection name (default "compas_sessions").
	Collection string
	// CredentialsFile points at a service-account key; Application Default
	// Credentials are used when empty.
	CredentialsFile string
}

// firestoreDoc is the stored document shape. The snapshot is kept as a JSON
// blob because Firestore map keys cannot express the typed stage keys used
// by Snapshot.StageData.
type firestoreDoc struct {
	Data      string    `firestore:"data"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// FirestoreStore keeps session snapshots in Google Cloud Firestore.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	mu         sync.RWMutex
	closed     bool
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project ID is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "compas_sessions"
	}

	return &FirestoreStore{client: client, collection: collection}, nil
}

func (s *FirestoreStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

// Create makes a new session and persists its initial snapshot.
func (s *FirestoreStore) Create(ctx context.Context) (*Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	sess := New(NewID())
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session snapshot and rebuilds a live session from it.
func (s *FirestoreStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	snap, err := s.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode session document: %w", err)
	}

	var stored Snapshot
	if err := json.Unmarshal([]byte(doc.Data), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return FromSnapshot(stored), nil
}

// Save writes the session snapshot.
func (s *FirestoreStore) Save(ctx context.Context, sess *Session) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(sess.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.doc(sess.ID()).Set(ctx, firestoreDoc{
		Data:      string(data),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes a session document. Unknown IDs are ignored.
func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, err := s.doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns the IDs of all stored sessions.
func (s *FirestoreStore) List(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var ids []string
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		ids = append(ids, doc.Ref.ID)
	}
	return ids, nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
