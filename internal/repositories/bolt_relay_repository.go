package repositories

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/HannahMarsh/onion-circuit/internal/api/structs"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const relaysBucket = "relays"

// BoltRelayRepository persists registrations in a bbolt file, keyed by the bucket sequence so that
// iteration follows registration order.
type BoltRelayRepository struct {
	db *bolt.DB
}

func OpenBoltRelayRepository(path string) (*BoltRelayRepository, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open registry database %s", path)
	}
	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(relaysBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create relays bucket")
	}
	return &BoltRelayRepository{db: db}, nil
}

func (s *BoltRelayRepository) Append(_ context.Context, relay onion.RelayDescriptor) error {
	value, err := json.Marshal(structs.PublicNodeApi{NodeID: relay.Identity, PubKey: relay.PublicKey})
	if err != nil {
		return errors.Wrap(err, "failed to marshal relay")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(relaysBucket))
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return bkt.Put(key[:], value)
	})
}

func (s *BoltRelayRepository) List(_ context.Context) ([]onion.RelayDescriptor, error) {
	var out []onion.RelayDescriptor
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(relaysBucket)).ForEach(func(_, v []byte) error {
			var node structs.PublicNodeApi
			if err := json.Unmarshal(v, &node); err != nil {
				return errors.Wrap(err, "corrupt relay entry")
			}
			out = append(out, onion.RelayDescriptor{Identity: node.NodeID, PublicKey: node.PubKey})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltRelayRepository) Close() error {
	return s.db.Close()
}
