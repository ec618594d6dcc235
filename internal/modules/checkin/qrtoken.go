// README: Short-lived requester QR tokens kept in Redis.
package checkin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"helperhub/internal/types"
)

const qrKeyPrefix = "checkin:qr:"

// QRTokenStore keeps one live token per requester; issuing replaces the old one.
type QRTokenStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewQRTokenStore(rdb *redis.Client, ttl time.Duration) *QRTokenStore {
	return &QRTokenStore{rdb: rdb, ttl: ttl}
}

func (s *QRTokenStore) Issue(ctx context.Context, requesterID types.ID) (QRPayload, time.Time, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return QRPayload{}, time.Time{}, errors.Wrap(err, "generate qr token")
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := s.rdb.Set(ctx, qrKeyPrefix+string(requesterID), token, s.ttl).Err(); err != nil {
		return QRPayload{}, time.Time{}, errors.Wrap(err, "store qr token")
	}
	return QRPayload{Type: QRType, RequesterID: requesterID, Token: token}, time.Now().Add(s.ttl), nil
}

func (s *QRTokenStore) Verify(ctx context.Context, requesterID types.ID, token string) error {
	stored, err := s.rdb.Get(ctx, qrKeyPrefix+string(requesterID)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrQRTokenInvalid
	}
	if err != nil {
		return errors.Wrap(err, "load qr token")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return ErrQRTokenInvalid
	}
	return nil
}
