package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gobetrelay/config"
	"gobetrelay/types"
)

// Store keeps relay records, intent claims and the address book
type Store struct {
	pool   *redis.Pool
	logger *zap.Logger
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func NewStore(addr string, logger *zap.Logger) *Store {
	return &Store{
		pool: &redis.Pool{
			MaxIdle:     5,
			IdleTimeout: 240 * time.Second,
			DialContext: func(ctx context.Context) (redis.Conn, error) {
				return redis.DialContext(ctx, "tcp", addr, timeoutDialOptions()...)
			},
		},
		logger: logger,
	}
}

func Addr(cfg *config.Configuration) string {
	return fmt.Sprintf("%s:%d", cfg.Server.RedisHost, cfg.Server.RedisPort)
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return unavailable(err)
	}
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return types.WrapError(types.ErrStoreUnavailable, "activity log is unavailable", err)
}

func recordKey(status, id string) string {
	return fmt.Sprintf("relayop:%s:%s", status, id)
}

// Claim marks key as used for ttl, or for good when ttl is zero or less.
// It returns false when the key was already claimed.
func (s *Store) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return false, unavailable(err)
	}
	defer conn.Close()

	args := redis.Args{}.Add("claim:"+key, time.Now().Unix(), "NX")
	if ttl > 0 {
		seconds := int64(ttl / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		args = args.Add("EX", seconds)
	}
	reply, err := redis.String(conn.Do("SET", args...))
	if errors.Is(err, redis.ErrNil) {
		return false, nil
	}
	if err != nil {
		s.logger.Error("redis SET NX failed", zap.String("key", key), zap.Error(err))
		return false, unavailable(err)
	}
	return reply == "OK", nil
}

func (s *Store) Release(ctx context.Context, key string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return unavailable(err)
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", "claim:"+key); err != nil {
		s.logger.Error("redis DEL failed", zap.String("key", key), zap.Error(err))
		return unavailable(err)
	}
	return nil
}

// Record stores a new relay record under its status set
func (s *Store) Record(ctx context.Context, rec *types.RelayRecord) error {
	if rec == nil {
		return errors.New("null object to store")
	}
	if _, ok := config.RedisStatusSets[rec.Status]; !ok {
		return fmt.Errorf("unknown relay status %q", rec.Status)
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if rec.TsCreated == 0 {
		rec.TsCreated = now
	}
	rec.TsUpdated = now

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot marshal relay record to JSON: %w", err)
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return unavailable(err)
	}
	defer conn.Close()

	key := recordKey(rec.Status, rec.ID)
	if _, err = conn.Do("SET", key, recJSON); err != nil {
		s.logger.Error("redis SET failed", zap.String("key", key), zap.Error(err))
		return unavailable(err)
	}

	// also add the key to the corresponding SET
	if _, err = conn.Do("SADD", config.RedisStatusSets[rec.Status], key); err != nil {
		s.logger.Error("redis SADD failed", zap.String("key", key), zap.Error(err))
		return unavailable(err)
	}
	return nil
}

// ChangeStatus moves a record from prevStatus to rec.Status
func (s *Store) ChangeStatus(ctx context.Context, rec *types.RelayRecord, prevStatus string) error {
	if rec == nil || rec.ID == "" {
		return errors.New("relay record without id")
	}
	if _, ok := config.RedisStatusSets[rec.Status]; !ok {
		return fmt.Errorf("unknown relay status %q", rec.Status)
	}
	rec.TsUpdated = time.Now().Unix()

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot marshal relay record to JSON: %w", err)
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return unavailable(err)
	}
	defer conn.Close()

	prevKey := recordKey(prevStatus, rec.ID)
	key := recordKey(rec.Status, rec.ID)

	if err := conn.Send("MULTI"); err != nil {
		return unavailable(err)
	}
	_ = conn.Send("SREM", config.RedisStatusSets[prevStatus], prevKey)
	_ = conn.Send("DEL", prevKey)
	_ = conn.Send("SET", key, recJSON)
	_ = conn.Send("SADD", config.RedisStatusSets[rec.Status], key)
	if _, err := conn.Do("EXEC"); err != nil {
		s.logger.Error("redis status change failed", zap.String("id", rec.ID), zap.Error(err))
		return unavailable(err)
	}
	return nil
}

// FindAllByStatus scans the status set. Dangling keys are skipped.
func (s *Store) FindAllByStatus(ctx context.Context, status string) ([]*types.RelayRecord, error) {
	set, ok := config.RedisStatusSets[status]
	if !ok {
		return nil, fmt.Errorf("unknown relay status %q", status)
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	defer conn.Close()

	recs := make([]*types.RelayRecord, 0)
	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", set, cursor))
		if err != nil {
			return nil, unavailable(err)
		}

		var keys []string
		if _, err = redis.Scan(values, &cursor, &keys); err != nil {
			return nil, err
		}

		for _, key := range keys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				continue
			}
			if err != nil {
				return nil, unavailable(err)
			}

			var rec types.RelayRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				s.logger.Warn("skipping unreadable relay record", zap.String("key", key), zap.Error(err))
				continue
			}
			if rec.Status == status {
				recs = append(recs, &rec)
			}
		}

		if cursor == 0 {
			break
		}
	}
	return recs, nil
}

func addressBookKey(originChain, originAddress string, version int) string {
	if config.Family(originChain) == types.FamilyEVM {
		originAddress = strings.ToLower(originAddress)
	}
	return fmt.Sprintf("addrbook:v%d:%s:%s", version, originChain, originAddress)
}

func (s *Store) UpsertAddressBookRecord(ctx context.Context, rec *types.AddressBookRecord) error {
	if rec == nil || rec.OriginAddress == "" {
		return errors.New("address book record cannot have empty origin address")
	}
	if rec.TsCreated == 0 {
		rec.TsCreated = time.Now().Unix()
	}

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot marshal address book record to JSON: %w", err)
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return unavailable(err)
	}
	defer conn.Close()

	if _, err = conn.Do("SET", addressBookKey(rec.OriginChain, rec.OriginAddress, rec.Version), recJSON); err != nil {
		return unavailable(err)
	}
	return nil
}

// GetAddressBookRecord returns nil when nothing is cached for the identity
func (s *Store) GetAddressBookRecord(ctx context.Context, originChain, originAddress string, version int) (*types.AddressBookRecord, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	defer conn.Close()

	raw, err := redis.Bytes(conn.Do("GET", addressBookKey(originChain, originAddress, version)))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}

	var rec types.AddressBookRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
