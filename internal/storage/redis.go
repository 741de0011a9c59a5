package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"roomresq/backend/internal/apperr"
	"roomresq/backend/internal/config"
	"roomresq/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

func verificationKey(email string) string {
	return config.VerificationKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

func refreshKey(token string) string {
	return config.RefreshKeyPrefix + token
}

func redisError(err error, what string) error {
	if errors.Is(err, redis.Nil) {
		return apperr.NotFound("%s not found", what)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, err, "redis timed out")
	}
	return apperr.Wrap(apperr.KindInternal, err, "redis failure")
}

// SaveVerificationCode replaces any previous code for the e-mail.
func (s *Service) SaveVerificationCode(ctx context.Context, email, code string, ttl time.Duration) error {
	if s.Redis == nil {
		return errNoRedis
	}
	if err := s.Redis.Set(ctx, verificationKey(email), code, ttl).Err(); err != nil {
		return redisError(err, "verification code")
	}
	return nil
}

func (s *Service) GetVerificationCode(ctx context.Context, email string) (string, error) {
	if s.Redis == nil {
		return "", errNoRedis
	}
	code, err := s.Redis.Get(ctx, verificationKey(email)).Result()
	if err != nil {
		return "", redisError(err, "verification code")
	}
	return code, nil
}

func (s *Service) DeleteVerificationCode(ctx context.Context, email string) error {
	if s.Redis == nil {
		return errNoRedis
	}
	if err := s.Redis.Del(ctx, verificationKey(email)).Err(); err != nil {
		return redisError(err, "verification code")
	}
	return nil
}

func (s *Service) SaveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if s.Redis == nil {
		return errNoRedis
	}
	if err := s.Redis.Set(ctx, refreshKey(token), userID, ttl).Err(); err != nil {
		return redisError(err, "refresh token")
	}
	return nil
}

func (s *Service) GetRefreshToken(ctx context.Context, token string) (string, error) {
	if s.Redis == nil {
		return "", errNoRedis
	}
	userID, err := s.Redis.Get(ctx, refreshKey(token)).Result()
	if err != nil {
		return "", redisError(err, "refresh token")
	}
	return userID, nil
}

func (s *Service) DeleteRefreshToken(ctx context.Context, token string) error {
	if s.Redis == nil {
		return errNoRedis
	}
	if err := s.Redis.Del(ctx, refreshKey(token)).Err(); err != nil {
		return redisError(err, "refresh token")
	}
	return nil
}

// PublishEvent публікує подію в Redis Pub/Sub
func (s *Service) PublishEvent(ctx context.Context, ev models.ComplaintEvent) error {
	if s.Redis == nil {
		return errNoRedis
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := s.Redis.Publish(ctx, config.EventChannel, string(payload)).Err(); err != nil {
		return redisError(err, "event channel")
	}
	return nil
}

// SubscribeEvents listens on the shared channel so every server instance sees every write.
func (s *Service) SubscribeEvents(ctx context.Context) (<-chan models.ComplaintEvent, error) {
	if s.Redis == nil {
		return nil, errNoRedis
	}
	pubsub := s.Redis.Subscribe(ctx, config.EventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, redisError(err, "event channel")
	}

	out := make(chan models.ComplaintEvent, config.ClientSendBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.ComplaintEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("Error unmarshalling Redis message: %v", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
