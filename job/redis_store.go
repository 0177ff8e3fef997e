package job

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowkit-io/flowkit/errors"
	"github.com/flowkit-io/flowkit/logger"
)

// RedisStore is a Redis-backed Store. Records are JSON blobs; per-pipeline
// job ids live in a list so creation order survives. Status transitions use
// WATCH to stay atomic under concurrent workers: the worker that loses the
// race gets a conflict, never a double execution.
type RedisStore struct {
	rdb       *goredis.Client
	keyPrefix string
	log       *logger.Logger
}

// NewRedisStore creates a RedisStore on an existing client. All keys are
// prefixed with keyPrefix followed by a colon.
func NewRedisStore(rdb *goredis.Client, keyPrefix string, log *logger.Logger) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "flowkit"
	}
	return &RedisStore{
		rdb:       rdb,
		keyPrefix: keyPrefix,
		log:       log.WithComponent("job.redisstore"),
	}
}

func (s *RedisStore) pipelineKey(id string) string { return s.keyPrefix + ":pipeline:" + id }
func (s *RedisStore) jobKey(id string) string      { return s.keyPrefix + ":job:" + id }
func (s *RedisStore) jobsKey(pipelineID string) string {
	return s.keyPrefix + ":pipeline:" + pipelineID + ":jobs"
}

func (s *RedisStore) CreatePipeline(ctx context.Context, p *Pipeline) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Internal("marshaling pipeline", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.pipelineKey(p.ID), data, 0).Result()
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	if !ok {
		return errors.AlreadyExists("pipeline")
	}
	return nil
}

func (s *RedisStore) GetPipeline(ctx context.Context, id string) (*Pipeline, error) {
	raw, err := s.rdb.Get(ctx, s.pipelineKey(id)).Result()
	if err == goredis.Nil {
		return nil, errors.NotFound("pipeline", id)
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	var p Pipeline
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, errors.Internal("unmarshaling pipeline "+id, err)
	}
	return &p, nil
}

func (s *RedisStore) UpdatePipeline(ctx context.Context, p *Pipeline) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Internal("marshaling pipeline", err)
	}
	ok, err := s.rdb.SetXX(ctx, s.pipelineKey(p.ID), data, 0).Result()
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	if !ok {
		return errors.NotFound("pipeline", p.ID)
	}
	return nil
}

func (s *RedisStore) CreateJobs(ctx context.Context, jobs []*Job) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, j := range jobs {
			data, err := json.Marshal(j)
			if err != nil {
				return fmt.Errorf("marshaling job %s: %w", j.ID, err)
			}
			pipe.Set(ctx, s.jobKey(j.ID), data, 0)
			pipe.RPush(ctx, s.jobsKey(j.PipelineID), j.ID)
		}
		return nil
	})
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

func (s *RedisStore) GetJob(ctx context.Context, id string) (*Job, error) {
	raw, err := s.rdb.Get(ctx, s.jobKey(id)).Result()
	if err == goredis.Nil {
		return nil, errors.NotFound("job", id)
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return decodeJob(raw)
}

func (s *RedisStore) UpdateJob(ctx context.Context, j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return errors.Internal("marshaling job", err)
	}
	ok, err := s.rdb.SetXX(ctx, s.jobKey(j.ID), data, 0).Result()
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	if !ok {
		return errors.NotFound("job", j.ID)
	}
	return nil
}

func (s *RedisStore) ListJobs(ctx context.Context, pipelineID string) ([]*Job, error) {
	ids, err := s.rdb.LRange(ctx, s.jobsKey(pipelineID), 0, -1).Result()
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(id)
	}
	raws, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}

	out := make([]*Job, 0, len(raws))
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		j, err := decodeJob(str)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *RedisStore) ListDependents(ctx context.Context, pipelineID, jobID string) ([]*Job, error) {
	jobs, err := s.ListJobs(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	var out []*Job
	for _, j := range jobs {
		for _, dep := range j.DependsOn {
			if dep == jobID {
				out = append(out, j)
				break
			}
		}
	}
	return out, nil
}

func (s *RedisStore) DeleteJobs(ctx context.Context, pipelineID string) (int, error) {
	ids, err := s.rdb.LRange(ctx, s.jobsKey(pipelineID), 0, -1).Result()
	if err != nil {
		return 0, errors.StoreUnavailable(err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, s.jobKey(id))
		}
		pipe.Del(ctx, s.jobsKey(pipelineID))
		return nil
	})
	if err != nil {
		return 0, errors.StoreUnavailable(err)
	}
	return len(ids), nil
}

func (s *RedisStore) TransitionJob(ctx context.Context, jobID string, from, to Status) (*Job, error) {
	key := s.jobKey(jobID)
	var updated *Job

	txn := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err == goredis.Nil {
			return errors.NotFound("job", jobID)
		}
		if err != nil {
			return errors.StoreUnavailable(err)
		}

		j, err := decodeJob(raw)
		if err != nil {
			return err
		}
		if j.Status != from {
			return errors.Conflict("job " + jobID + " is " + string(j.Status) + ", expected " + string(from))
		}
		if err := j.Transition(to); err != nil {
			return err
		}

		data, err := json.Marshal(j)
		if err != nil {
			return errors.Internal("marshaling job", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return errors.StoreUnavailable(err)
		}
		updated = j
		return nil
	}

	err := s.rdb.Watch(ctx, txn, key)
	if err == goredis.TxFailedErr {
		// Another worker touched the record between GET and EXEC.
		return nil, errors.New(errors.ErrCodeLockContention, "job "+jobID+" was modified concurrently", 409)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func decodeJob(raw string) (*Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, errors.Internal("unmarshaling job", err)
	}
	return &j, nil
}

var _ Store = (*RedisStore)(nil)
