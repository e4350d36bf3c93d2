package repositories

import (
	"context"

	"coahub/app/models"

	"github.com/dgraph-io/badger/v4"
)

// UserRepo implements UserRepository on Badger. Username and email keys act
// as unique indexes pointing at the user id.
type UserRepo struct {
	db *badger.DB
}

var _ UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	return update(ctx, r.db, func(txn *badger.Txn) error {
		for _, key := range [][]byte{userKey(user.ID), usernameKey(user.Username), emailKey(user.Email)} {
			if _, err := txn.Get(key); err == nil {
				return ErrDuplicate
			}
		}
		if err := setEntity(txn, userKey(user.ID), user); err != nil {
			return err
		}
		if err := txn.Set(usernameKey(user.Username), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(emailKey(user.Email), []byte(user.ID))
	})
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getByIndex(emailKey(email))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getByIndex(usernameKey(username))
}

// Update rewrites the user and moves its index keys when username or email
// changed.
func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var current models.User
		if err := getEntity(txn, userKey(user.ID), &current); err != nil {
			return err
		}
		if err := moveIndex(txn, usernameKey(current.Username), usernameKey(user.Username), user.ID); err != nil {
			return err
		}
		if err := moveIndex(txn, emailKey(current.Email), emailKey(user.Email), user.ID); err != nil {
			return err
		}
		return setEntity(txn, userKey(user.ID), user)
	})
}

func (r *UserRepo) getByIndex(key []byte) (*models.User, error) {
	var user models.User
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getString(txn, key)
		if err != nil {
			return err
		}
		return getEntity(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func moveIndex(txn *badger.Txn, from, to []byte, id string) error {
	if string(from) == string(to) {
		return nil
	}
	owner, err := getString(txn, to)
	if err == nil && owner != id {
		return ErrDuplicate
	}
	if err != nil && err != ErrNotFound {
		return err
	}
	if err := txn.Delete(from); err != nil {
		return err
	}
	return txn.Set(to, []byte(id))
}
