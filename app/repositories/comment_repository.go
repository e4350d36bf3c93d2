package repositories

import (
	"context"

	"coahub/app/models"

	"github.com/dgraph-io/badger/v4"
)

// CommentRepo implements CommentRepository on Badger. Comments live under
// their post's key prefix; a reference key resolves a bare comment id.
type CommentRepo struct {
	db *badger.DB
}

var _ CommentRepository = (*CommentRepo)(nil)

func (r *CommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = models.NewID()
	}
	return update(ctx, r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(commentRefKey(comment.ID)); err == nil {
			return ErrDuplicate
		}
		if err := setEntity(txn, commentKey(comment.PostID, comment.ID), comment.Clone()); err != nil {
			return err
		}
		return txn.Set(commentRefKey(comment.ID), []byte(comment.PostID))
	})
}

func (r *CommentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		postID, err := getString(txn, commentRefKey(id))
		if err != nil {
			return err
		}
		return getEntity(txn, commentKey(postID, id), &comment)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *CommentRepo) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = commentPrefix(postID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var comment models.Comment
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &comment)
			}); err != nil {
				return err
			}
			comments = append(comments, &comment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	models.SortCommentsOldestFirst(comments)
	return comments, nil
}

func (r *CommentRepo) CountByPost(ctx context.Context, postID string) (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = commentPrefix(postID)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (r *CommentRepo) Delete(ctx context.Context, id string) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		postID, err := getString(txn, commentRefKey(id))
		if err != nil {
			return err
		}
		if err := txn.Delete(commentKey(postID, id)); err != nil {
			return err
		}
		return txn.Delete(commentRefKey(id))
	})
}

// DeleteByPost collects the thread's keys and removes them with a write
// batch, which is not bounded by the transaction size limit.
func (r *CommentRepo) DeleteByPost(ctx context.Context, postID string) (int, error) {
	var keys [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = commentPrefix(postID)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixLen := len(opts.Prefix)
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			keys = append(keys, key, commentRefKey(string(key[prefixLen:])))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys) / 2, nil
}
