/*
Package redisq provides a queue.Queue backed by a redis DB, so that several
worker processes can share a batch of experiments.
*/
package redisq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mathrand "math/rand/v2"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pbanos/topiary/queue"
	"github.com/pbanos/topiary/queue/json"
)

type redisQ struct {
	id            string
	rc            *redis.Client
	allProblemCtx context.Context
	allProblemCF  context.CancelFunc
	maxRun        time.Duration
	lockTTL       time.Duration
	json.ProblemEncodeDecoder
}

var lockRelease = redis.NewScript(`
if redis.call("GET",KEYS[1]) == ARGV[1] then
    return redis.call("DEL",KEYS[1])
else
    return 0
end
`)

// count pending and running sets at the same time to prevent a problem
// moving between them from triggering a false "work finished" event
var countBoth = redis.NewScript(`return {redis.call("SCARD", KEYS[1]), redis.call("SCARD", KEYS[2])}`)

const lockAttempts = 5
const failToLockSleep = 10 * time.Millisecond

/*
New returns a queue.Queue that uses the given redis client as a
backend. It uses the given id to prefix the keys used on the
redis client to keep the queue's data, which are the following:
  - id:pending is the key to a set with the key prefixes of the pending problems
  - id:running is the key to a set with the key prefixes of the running problems
  - id:problem:problem_id:data is the key to a string that holds the problem data.
    Problems are encoded and decoded using the given ProblemEncodeDecoder.
  - id:problem:problem_id:lock implements a lock for exclusive management of a
    problem on the queue. It is set to expire in the given lockTTL duration
  - id:problem:problem_id:running implements a mark to set the problem is
    already running, that expires in the given maxRun duration. Once the key
    expires a cleanup process will understand the problem was dropped by a
    failing worker. Setting it to the zero value prevents the key from
    expiring and the cleanup process from taking place at all.

The returned queue is secure for concurrent use by multiple goroutines.
*/
func New(id string, rc *redis.Client, maxRun, lockTTL time.Duration, encDec json.ProblemEncodeDecoder) queue.Queue {
	ctx, cf := context.WithCancel(context.Background())
	rq := &redisQ{
		id:                   id,
		rc:                   rc,
		allProblemCtx:        ctx,
		allProblemCF:         cf,
		maxRun:               maxRun,
		lockTTL:              lockTTL,
		ProblemEncodeDecoder: encDec,
	}
	if maxRun > 0 {
		go rq.dropTimedOutProblems()
	}
	return rq
}

// Push takes a problem and stores it in the queue or
// returns an error. The problem will count as pending.
func (rq *redisQ) Push(ctx context.Context, p *queue.Problem) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("pushing problem to queue: %w", err)
	}
	if strings.Contains(p.ID, ":") {
		return fmt.Errorf("pushing problem %s to queue: ids cannot contain ':'", p.ID)
	}
	data, err := rq.Encode(ctx, p)
	if err != nil {
		return fmt.Errorf("pushing problem %s to queue: %w", p.ID, err)
	}
	keyPrefix := rq.problemKeyPrefix(p.ID)
	dataKey := keyPrefix + ":data"
	ok, err := rq.rc.SetNX(ctx, dataKey, data, 0).Result()
	if err != nil {
		return fmt.Errorf("pushing problem %s to queue: %w", p.ID, err)
	}
	if !ok {
		return fmt.Errorf("pushing problem %s to queue: key %q already exists", p.ID, dataKey)
	}
	added, err := rq.rc.SAdd(ctx, rq.pendingSetKey(), keyPrefix).Result()
	if err != nil || added != 1 {
		rq.rc.Del(ctx, dataKey)
		if err == nil {
			err = fmt.Errorf("%q already in pending set %q", keyPrefix, rq.pendingSetKey())
		}
		return fmt.Errorf("pushing problem %s to queue %s: %w", p.ID, rq.id, err)
	}
	return nil
}

// Pull returns a problem and a context that may have
// a timeout or allow its cancellation, or an error.
// The pulled problem will be counted as running from
// then on.
func (rq *redisQ) Pull(ctx context.Context) (*queue.Problem, context.Context, context.CancelFunc, error) {
	iter := rq.rc.SScan(ctx, rq.pendingSetKey(), 0, "", 0).Iterator()
	for iter.Next(ctx) {
		var pctx context.Context
		var pcf context.CancelFunc
		if rq.maxRun == 0 {
			pctx, pcf = context.WithCancel(rq.allProblemCtx)
		} else {
			pctx, pcf = context.WithTimeout(rq.allProblemCtx, rq.maxRun)
		}
		keyPrefix := iter.Val()
		err := rq.withLockFor(ctx, keyPrefix, 0, func(ctx context.Context) error {
			ok, err := rq.rc.SetNX(ctx, keyPrefix+":running", "true", rq.maxRun).Result()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("problem %q already running", keyPrefix)
			}
			moved, err := rq.rc.SMove(ctx, rq.pendingSetKey(), rq.runningSetKey(), keyPrefix).Result()
			if err == nil && !moved {
				err = fmt.Errorf("not pending anymore")
			}
			if err != nil {
				if ctx.Err() == nil {
					rq.rc.Del(ctx, keyPrefix+":running")
				}
				return fmt.Errorf("moving %q from %q set to %q set: %w", keyPrefix, rq.pendingSetKey(), rq.runningSetKey(), err)
			}
			return nil
		})
		if err != nil {
			pcf()
			continue
		}
		id := problemID(keyPrefix)
		data, err := rq.rc.Get(ctx, keyPrefix+":data").Bytes()
		if err != nil {
			pcf()
			rq.Drop(ctx, id)
			continue
		}
		p, err := rq.Decode(ctx, data)
		if err != nil {
			pcf()
			rq.Drop(ctx, id)
			continue
		}
		return p, pctx, pcf, nil
	}
	if err := iter.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterating over pending problems in %q set: %w", rq.pendingSetKey(), err)
	}
	return nil, nil, nil, nil
}

// Drop takes the ID of a problem and makes it available
// for pulling from the Queue again, unless it has been
// completed.
func (rq *redisQ) Drop(ctx context.Context, id string) error {
	keyPrefix := rq.problemKeyPrefix(id)
	err := rq.withLockFor(ctx, keyPrefix, lockAttempts, func(ctx context.Context) error {
		ok, err := rq.rc.SMove(ctx, rq.runningSetKey(), rq.pendingSetKey(), keyPrefix).Result()
		if err != nil {
			return fmt.Errorf("moving %q from %q to %q: %w", keyPrefix, rq.runningSetKey(), rq.pendingSetKey(), err)
		}
		if !ok {
			return nil
		}
		if err = rq.rc.Del(ctx, keyPrefix+":running").Err(); err != nil {
			return fmt.Errorf("removing %q: %w", keyPrefix+":running", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("dropping %s: %w", id, err)
	}
	return nil
}

// Complete takes the ID of a problem and removes it
// from the running state and its data from redis.
func (rq *redisQ) Complete(ctx context.Context, id string) error {
	keyPrefix := rq.problemKeyPrefix(id)
	err := rq.withLockFor(ctx, keyPrefix, lockAttempts, func(ctx context.Context) error {
		count, err := rq.rc.SRem(ctx, rq.runningSetKey(), keyPrefix).Result()
		if err != nil {
			return fmt.Errorf("removing %q from %q: %w", keyPrefix, rq.runningSetKey(), err)
		}
		if count == 0 {
			return nil
		}
		if err = rq.rc.Del(ctx, keyPrefix+":running", keyPrefix+":data").Err(); err != nil {
			return fmt.Errorf("removing %q: %w", keyPrefix, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("completing %s: %w", id, err)
	}
	return nil
}

// Count returns the number of
// pending and running problems in the queue
// or an error
func (rq *redisQ) Count(ctx context.Context) (int, int, error) {
	v, err := countBoth.Run(ctx, rq.rc, []string{rq.pendingSetKey(), rq.runningSetKey()}).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("counting problems: %w", err)
	}
	if len(v) != 2 {
		return 0, 0, fmt.Errorf("counting problems: redis returned %d counts instead of 2", len(v))
	}
	return int(v[0]), int(v[1]), nil
}

// Stop cancels the contexts of pulled problems and the
// cleanup process. It does not close the redis client.
func (rq *redisQ) Stop(context.Context) error {
	rq.allProblemCF()
	return nil
}

func (rq *redisQ) String() string {
	return fmt.Sprintf("{redis queue %s}", rq.id)
}

func (rq *redisQ) problemKeyPrefix(id string) string {
	return fmt.Sprintf("%s:problem:%s", rq.id, id)
}

func problemID(keyPrefix string) string {
	return keyPrefix[strings.LastIndex(keyPrefix, ":")+1:]
}

func (rq *redisQ) pendingSetKey() string {
	return rq.id + ":pending"
}

func (rq *redisQ) runningSetKey() string {
	return rq.id + ":running"
}

func (rq *redisQ) withLockFor(ctx context.Context, keyPrefix string, additionalAttempts int, f func(ctx context.Context) error) error {
	lockKey := keyPrefix + ":lock"
	lockValue, err := randString(20)
	if err != nil {
		return fmt.Errorf("could not acquire lock: %w", err)
	}
	lctx, cf := context.WithTimeout(ctx, rq.lockTTL)
	defer cf()
	ok, err := rq.rc.SetNX(ctx, lockKey, lockValue, rq.lockTTL).Result()
	if err != nil {
		return fmt.Errorf("could not acquire lock: %w", err)
	}
	if !ok {
		if additionalAttempts > 0 {
			cf()
			d, _ := rq.rc.TTL(ctx, lockKey).Result()
			wait := d + time.Duration(mathrand.Int64N(int64(failToLockSleep)*int64(additionalAttempts)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			return rq.withLockFor(ctx, keyPrefix, additionalAttempts-1, f)
		}
		return fmt.Errorf("could not acquire lock: already taken")
	}
	defer lockRelease.Run(context.WithoutCancel(ctx), rq.rc, []string{lockKey}, lockValue)
	return f(lctx)
}

func (rq *redisQ) dropTimedOutProblems() {
	ticker := time.NewTicker(rq.maxRun / 2)
	defer ticker.Stop()
	for {
		iter := rq.rc.SScan(rq.allProblemCtx, rq.runningSetKey(), 0, "", 0).Iterator()
		for iter.Next(rq.allProblemCtx) {
			var timedOut bool
			keyPrefix := iter.Val()
			rq.withLockFor(rq.allProblemCtx, keyPrefix, 0, func(ctx context.Context) error {
				exists, err := rq.rc.Exists(ctx, keyPrefix+":running").Result()
				if err != nil {
					return err
				}
				timedOut = exists == 0
				return nil
			})
			if timedOut {
				rq.Drop(rq.allProblemCtx, problemID(keyPrefix))
			}
			if rq.allProblemCtx.Err() != nil {
				return
			}
		}
		select {
		case <-rq.allProblemCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

func randString(n int) (string, error) {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:n], nil
}
