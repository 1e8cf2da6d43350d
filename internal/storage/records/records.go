// Package records is the typed view over a kv.Store. It owns the record keys and
// their JSON encoding; each read and write moves one whole record.
package records

import (
	"context"
	"encoding/json"

	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/BearBump/ShipTrack/internal/storage/kv"
	"github.com/pkg/errors"
)

const (
	KeyUsers       = "shiptrack_users"
	KeySession     = "shiptrack_current_user"
	KeySettings    = "shiptrack_settings"
	keyItemsPrefix = "shiptrack_items:"
)

func ItemsKey(ownerID string) string {
	return keyItemsPrefix + ownerID
}

type Store struct {
	kv kv.Store
}

func New(store kv.Store) *Store {
	return &Store{kv: store}
}

func (s *Store) Users(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if _, err := s.load(ctx, KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) SaveUsers(ctx context.Context, users []*models.User) error {
	if users == nil {
		users = []*models.User{}
	}
	return s.save(ctx, KeyUsers, users)
}

// Session returns nil when nobody is signed in.
func (s *Store) Session(ctx context.Context) (*models.Session, error) {
	var sess models.Session
	ok, err := s.load(ctx, KeySession, &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

// SetSession stores sess as the signed-in pointer; nil clears it.
func (s *Store) SetSession(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		return errors.Wrap(s.kv.Delete(ctx, KeySession), "clear session")
	}
	return s.save(ctx, KeySession, sess)
}

func (s *Store) Shipments(ctx context.Context, ownerID string) ([]*models.Shipment, error) {
	var items []*models.Shipment
	if _, err := s.load(ctx, ItemsKey(ownerID), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SaveShipments(ctx context.Context, ownerID string, items []*models.Shipment) error {
	if items == nil {
		items = []*models.Shipment{}
	}
	return s.save(ctx, ItemsKey(ownerID), items)
}

func (s *Store) DeleteShipments(ctx context.Context, ownerID string) error {
	return errors.Wrap(s.kv.Delete(ctx, ItemsKey(ownerID)), "delete shipments")
}

// Settings returns the zero value (registration open) when never written.
func (s *Store) Settings(ctx context.Context) (models.Settings, error) {
	var st models.Settings
	if _, err := s.load(ctx, KeySettings, &st); err != nil {
		return models.Settings{}, err
	}
	return st, nil
}

func (s *Store) SaveSettings(ctx context.Context, st models.Settings) error {
	return s.save(ctx, KeySettings, st)
}

func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) load(ctx context.Context, key string, dst any) (bool, error) {
	b, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "load %s", key)
	}
	if !ok || len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return errors.Wrapf(s.kv.Put(ctx, key, b), "save %s", key)
}
