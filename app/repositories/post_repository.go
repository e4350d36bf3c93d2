package repositories

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"coahub/app/models"

	"github.com/dgraph-io/badger/v4"
)

// PostRepo implements PostRepository on Badger. Mutations run as a single
// read-modify-write transaction on the post key while holding the post's
// lock stripe, so concurrent likes and counter updates queue up instead of
// aborting each other. Conflicts with other writers are replayed by update.
type PostRepo struct {
	db    *badger.DB
	locks *postLocks
}

const postLockStripes = 64

// postLocks serializes writers of the same post within the process.
type postLocks [postLockStripes]sync.Mutex

func (l *postLocks) forPost(postID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(postID))
	return &l[h.Sum32()%postLockStripes]
}

var _ PostRepository = (*PostRepo)(nil)

func (r *PostRepo) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = models.NewID()
	}
	return update(ctx, r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(postKey(post.ID)); err == nil {
			return ErrDuplicate
		}
		return setEntity(txn, postKey(post.ID), post.Clone())
	})
}

func (r *PostRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	post.Normalize()
	return &post, nil
}

func (r *PostRepo) List(ctx context.Context, category models.Category) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(PostKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var post models.Post
			if err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			}); err != nil {
				return err
			}
			if category != "" && post.Category != category {
				continue
			}
			post.Normalize()
			posts = append(posts, &post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	models.SortPostsNewestFirst(posts)
	return posts, nil
}

func (r *PostRepo) Delete(ctx context.Context, id string) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(postKey(id)); err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(postKey(id))
	})
}

func (r *PostRepo) AddLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	return r.mutate(ctx, postID, func(post *models.Post) error {
		return post.AddLike(userID)
	})
}

func (r *PostRepo) RemoveLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	return r.mutate(ctx, postID, func(post *models.Post) error {
		return post.RemoveLike(userID)
	})
}

func (r *PostRepo) AdjustCommentsCount(ctx context.Context, postID string, delta int) error {
	_, err := r.mutate(ctx, postID, func(post *models.Post) error {
		post.AdjustCommentsCount(delta)
		return nil
	})
	return err
}

func (r *PostRepo) SetCommentsCount(ctx context.Context, postID string, expected, count int) (bool, error) {
	_, err := r.mutate(ctx, postID, func(post *models.Post) error {
		if post.CommentsCount != expected {
			return errCountChanged
		}
		post.CommentsCount = 0
		post.AdjustCommentsCount(count)
		return nil
	})
	if errors.Is(err, errCountChanged) {
		return false, nil
	}
	return err == nil, err
}

var errCountChanged = errors.New("comments count changed")

// mutate loads a post, applies fn and writes it back in one transaction.
// When fn fails nothing is written.
func (r *PostRepo) mutate(ctx context.Context, postID string, fn func(post *models.Post) error) (*models.Post, error) {
	mu := r.locks.forPost(postID)
	mu.Lock()
	defer mu.Unlock()

	var result *models.Post
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		var post models.Post
		if err := getEntity(txn, postKey(postID), &post); err != nil {
			return err
		}
		post.Normalize()
		if err := fn(&post); err != nil {
			return err
		}
		if err := setEntity(txn, postKey(postID), &post); err != nil {
			return err
		}
		result = &post
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
