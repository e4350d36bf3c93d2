package repositories

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// Key prefixes for different entity types
	PostKeyPrefix       = "post:"
	CommentKeyPrefix    = "comment:"
	CommentRefKeyPrefix = "commentref:"
	UserKeyPrefix       = "user:"
	UsernameKeyPrefix   = "username:"
	EmailKeyPrefix      = "email:"

	// Backoff between replays of a transaction that lost a conflict.
	conflictBackoffBase = 50 * time.Microsecond
	conflictBackoffMax  = 5 * time.Millisecond
)

func postKey(id string) []byte {
	return []byte(PostKeyPrefix + id)
}

// commentKey groups a post's comments under one prefix for cheap listing.
func commentKey(postID, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", CommentKeyPrefix, postID, id))
}

func commentPrefix(postID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", CommentKeyPrefix, postID))
}

// commentRefKey maps a comment id to its parent post id.
func commentRefKey(id string) []byte {
	return []byte(CommentRefKeyPrefix + id)
}

func userKey(id string) []byte {
	return []byte(UserKeyPrefix + id)
}

func usernameKey(username string) []byte {
	return []byte(UsernameKeyPrefix + username)
}

func emailKey(email string) []byte {
	return []byte(EmailKeyPrefix + email)
}

// marshalEntity encodes an entity as a BSON document, the same shape the
// Mongo backend stores.
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := bson.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %v", err)
	}
	return data, nil
}

// unmarshalEntity decodes a BSON document into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := bson.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %v", err)
	}
	return nil
}

// getEntity loads and decodes the value stored at key.
func getEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, entity)
	})
}

// setEntity encodes entity and stores it at key.
func setEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	data, err := marshalEntity(entity)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// getString reads a plain string value, used by the secondary index keys.
func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// update runs fn in a read-write transaction, replaying it with jittered
// backoff for as long as Badger reports that a concurrent transaction
// committed a conflicting write first. Only ctx ends the retries.
func update(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		err := db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if err := sleepCtx(ctx, conflictBackoff(attempt)); err != nil {
			return fmt.Errorf("%w: %w", badger.ErrConflict, err)
		}
	}
}

func conflictBackoff(attempt int) time.Duration {
	d := conflictBackoffMax
	if attempt < 7 {
		d = min(conflictBackoffBase<<attempt, conflictBackoffMax)
	}
	return d/2 + rand.N(d/2+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
