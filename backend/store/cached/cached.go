// Package cached decorates a store.DataAccess with a redis cache for the
// course catalog. Courses and lessons are read-only from the client, so they
// are safe to cache; enrollments and progress always go to the inner store.
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"coursehub/backend/models"
	"coursehub/backend/session"
	"coursehub/backend/store"
	"coursehub/backend/utils"
)

const keyPrefix = "coursehub:catalog:"

type Store struct {
	store.DataAccess
	rdb *goredis.Client
	ttl time.Duration
	log *utils.Logger
}

var _ store.DataAccess = (*Store)(nil)

// Dial connects to redis and fails fast when it is unreachable.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func New(inner store.DataAccess, rdb *goredis.Client, ttl time.Duration, baseLog *utils.Logger) *Store {
	return &Store{
		DataAccess: inner,
		rdb:        rdb,
		ttl:        ttl,
		log:        baseLog.With("store", "redis-catalog-cache"),
	}
}

// ListActiveEnrollments forwards to the inner store when it supports listing.
func (s *Store) ListActiveEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	lister, ok := s.DataAccess.(store.EnrollmentLister)
	if !ok {
		return nil, errors.New("inner store cannot list enrollments")
	}
	return lister.ListActiveEnrollments(ctx)
}

// load reads key into dst; a miss or any redis failure falls back to fetch,
// whose result is then written back best-effort.
func load[T any](ctx context.Context, s *Store, key string, dst *T, fetch func() (T, error)) error {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		if jerr := json.Unmarshal(raw, dst); jerr == nil {
			return nil
		}
	} else if !errors.Is(err, goredis.Nil) {
		s.log.Warn("catalog cache read failed", "key", key, "error", err)
	}

	v, err := fetch()
	if err != nil {
		return err
	}
	*dst = v

	if payload, jerr := json.Marshal(v); jerr == nil {
		if serr := s.rdb.Set(ctx, key, payload, s.ttl).Err(); serr != nil {
			s.log.Warn("catalog cache write failed", "key", key, "error", serr)
		}
	}
	return nil
}

func (s *Store) GetCourses(ctx context.Context, sess session.Session) ([]models.Course, error) {
	var out []models.Course
	err := load(ctx, s, keyPrefix+"courses", &out, func() ([]models.Course, error) {
		return s.DataAccess.GetCourses(ctx, sess)
	})
	return out, err
}

func (s *Store) GetCourseByID(ctx context.Context, sess session.Session, id uuid.UUID) (*models.Course, error) {
	var out *models.Course
	err := load(ctx, s, keyPrefix+"course:"+id.String(), &out, func() (*models.Course, error) {
		return s.DataAccess.GetCourseByID(ctx, sess, id)
	})
	return out, err
}

func (s *Store) GetLessons(ctx context.Context, sess session.Session, courseID uuid.UUID) ([]models.Lesson, error) {
	var out []models.Lesson
	err := load(ctx, s, keyPrefix+"lessons:"+courseID.String(), &out, func() ([]models.Lesson, error) {
		return s.DataAccess.GetLessons(ctx, sess, courseID)
	})
	return out, err
}
