package firestore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/arcana/internal/domain"
	"github.com/PabloGalante/arcana/internal/session"
)

// Store is a session.Backend on Firestore. Records expire through a
// Firestore TTL policy on updated_at, or through DeleteIdle.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for the given project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: projectID is required for Firestore store", domain.ErrConfiguration)
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(key domain.SessionKey) *firestore.DocumentRef {
	return s.sessionsCol().Doc(docID(key))
}

// docID keeps the key readable; Firestore ids may not contain '/'.
func docID(key domain.SessionKey) string {
	return url.QueryEscape(string(key.GuildID)) + ":" + url.QueryEscape(string(key.UserID))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	GuildID   string    `firestore:"guild_id"`
	UserID    string    `firestore:"user_id"`
	Version   int64     `firestore:"version"`
	State     string    `firestore:"state"`
	History   []string  `firestore:"history"`
	Context   []turnDoc `firestore:"context"`
	UpdatedAt time.Time `firestore:"updated_at"`

	Claim        string   `firestore:"claim,omitempty"`
	ClaimHistory []string `firestore:"claim_history,omitempty"`
}

type turnDoc struct {
	ID             string    `firestore:"id"`
	Question       string    `firestore:"question"`
	Cards          []cardDoc `firestore:"cards"`
	Interpretation string    `firestore:"interpretation"`
	At             time.Time `firestore:"at"`
}

type cardDoc struct {
	Name        string `firestore:"name"`
	Image       string `firestore:"image"`
	Orientation string `firestore:"orientation"`
}

func toDoc(key domain.SessionKey, version int64, rec domain.Record) sessionDoc {
	doc := sessionDoc{
		GuildID:   string(key.GuildID),
		UserID:    string(key.UserID),
		Version:   version,
		State:     rec.State.String(),
		History:   rec.History,
		UpdatedAt: rec.UpdatedAt,

		Claim:        rec.Claim,
		ClaimHistory: rec.ClaimHistory,
	}
	for _, t := range rec.Context {
		td := turnDoc{ID: t.ID, Question: t.Question, Interpretation: t.Interpretation, At: t.At}
		for _, c := range t.Cards {
			td.Cards = append(td.Cards, cardDoc{Name: c.Card.Name, Image: c.Card.Image, Orientation: string(c.Orientation)})
		}
		doc.Context = append(doc.Context, td)
	}
	return doc
}

func fromDoc(doc sessionDoc) (domain.Record, error) {
	state, err := domain.ParseState(doc.State)
	if err != nil {
		return domain.Record{}, err
	}
	rec := domain.Record{
		State:        state,
		History:      doc.History,
		UpdatedAt:    doc.UpdatedAt,
		Claim:        doc.Claim,
		ClaimHistory: doc.ClaimHistory,
	}
	for _, td := range doc.Context {
		t := domain.Turn{ID: td.ID, Question: td.Question, Interpretation: td.Interpretation, At: td.At}
		for _, c := range td.Cards {
			t.Cards = append(t.Cards, domain.DrawnCard{
				Card:        domain.Card{Name: c.Name, Image: c.Image},
				Orientation: domain.Orientation(c.Orientation),
			})
		}
		rec.Context = append(rec.Context, t)
	}
	return rec, nil
}

// ─────────────────────────────────────────
// session.Backend implementation
// ─────────────────────────────────────────

func (s *Store) Load(ctx context.Context, key domain.SessionKey) (domain.Record, int64, error) {
	snap, err := s.sessionDoc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.Record{}, 0, nil
		}
		return domain.Record{}, 0, fmt.Errorf("firestore Load: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return domain.Record{}, 0, fmt.Errorf("firestore Load decode: %w", err)
	}
	rec, err := fromDoc(doc)
	if err != nil {
		return domain.Record{}, 0, fmt.Errorf("firestore Load decode: %w", err)
	}
	return rec, doc.Version, nil
}

// CompareAndSwap reads and writes inside one transaction, so Firestore's own
// contention handling guarantees the version check is atomic.
func (s *Store) CompareAndSwap(ctx context.Context, key domain.SessionKey, version int64, rec domain.Record) (bool, error) {
	ref := s.sessionDoc(key)
	swapped := false

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		swapped = false

		current := int64(0)
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			v, err := snap.DataAt("version")
			if err != nil {
				return err
			}
			current, _ = v.(int64)
		}

		if current != version {
			return nil
		}
		swapped = true
		return tx.Set(ref, toDoc(key, session.NextVersion(version), rec))
	})
	if err != nil {
		return false, fmt.Errorf("firestore CompareAndSwap: %w", err)
	}
	return swapped, nil
}

func (s *Store) Delete(ctx context.Context, key domain.SessionKey) error {
	if _, err := s.sessionDoc(key).Delete(ctx); err != nil {
		return fmt.Errorf("firestore Delete: %w", err)
	}
	return nil
}

// DeleteIdle removes sessions last updated before the cutoff.
func (s *Store) DeleteIdle(ctx context.Context, before time.Time) (int, error) {
	iter := s.sessionsCol().Where("updated_at", "<", before).Documents(ctx)
	defer iter.Stop()

	removed := 0
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return removed, fmt.Errorf("firestore DeleteIdle: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx, firestore.LastUpdateTime(snap.UpdateTime)); err != nil {
			// touched since the query ran; leave it
			if status.Code(err) == codes.FailedPrecondition {
				continue
			}
			return removed, fmt.Errorf("firestore DeleteIdle: %w", err)
		}
		removed++
	}
	return removed, nil
}
