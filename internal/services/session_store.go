package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"profiler-pipeline/internal/config"
	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
)

const sessionTTL = 24 * time.Hour

// SessionStore persists per-session agent state and the small caches around
// it (resolved logos, returning-user contact details) in Redis.
type SessionStore struct {
	client *redis.Client
	logger *logger.Logger
}

func NewSessionStore(cfg config.RedisConfig, log *logger.Logger) (*SessionStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Info("connected to redis", "pool_size", opts.PoolSize)

	return &SessionStore{client: client, logger: log}, nil
}

// NewSessionStoreWithClient wires an existing client; tests use this with
// miniredis.
func NewSessionStoreWithClient(client *redis.Client, log *logger.Logger) *SessionStore {
	return &SessionStore{client: client, logger: log}
}

func snapshotKey(sessionID string) string {
	return fmt.Sprintf("session:%s:conversation", sessionID)
}

func websiteURLKey(sessionID string) string {
	return fmt.Sprintf("session:%s:website_url", sessionID)
}

func originalPromptKey(sessionID string) string {
	return fmt.Sprintf("session:%s:original_prompt", sessionID)
}

func logoKey(companyName string) string {
	return fmt.Sprintf("logo:%s", companyName)
}

func contactKey(email string) string {
	return fmt.Sprintf("contact:%s", email)
}

// SaveSnapshot persists the synthetic user+assistant pair replayed as memory
// for follow-up generation. Overwrites any earlier snapshot for the session.
func (s *SessionStore) SaveSnapshot(ctx context.Context, sessionID string, snapshot *models.ConversationSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return models.NewInternalError("SNAPSHOT_MARSHAL", "failed to marshal conversation snapshot").WithCause(err)
	}

	if err := s.client.Set(ctx, snapshotKey(sessionID), payload, sessionTTL).Err(); err != nil {
		return models.NewExternalError("SNAPSHOT_SAVE", "failed to save conversation snapshot").WithCause(err)
	}
	return nil
}

func (s *SessionStore) GetSnapshot(ctx context.Context, sessionID string) (*models.ConversationSnapshot, error) {
	payload, err := s.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, models.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, models.NewExternalError("SNAPSHOT_GET", "failed to load conversation snapshot").WithCause(err)
	}

	var snapshot models.ConversationSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, models.NewParseError("SNAPSHOT_UNMARSHAL", "corrupt conversation snapshot").WithCause(err)
	}
	return &snapshot, nil
}

func (s *SessionStore) SaveWebsiteURL(ctx context.Context, sessionID, url string) error {
	return s.client.Set(ctx, websiteURLKey(sessionID), url, sessionTTL).Err()
}

func (s *SessionStore) GetWebsiteURL(ctx context.Context, sessionID string) (string, error) {
	url, err := s.client.Get(ctx, websiteURLKey(sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return url, err
}

func (s *SessionStore) SaveOriginalPrompt(ctx context.Context, sessionID, prompt string) error {
	return s.client.Set(ctx, originalPromptKey(sessionID), prompt, sessionTTL).Err()
}

func (s *SessionStore) GetOriginalPrompt(ctx context.Context, sessionID string) (string, error) {
	prompt, err := s.client.Get(ctx, originalPromptKey(sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return prompt, err
}

// SaveLogo caches a successful logo resolution keyed by company name so the
// async fetch runs at most once per company per day.
func (s *SessionStore) SaveLogo(ctx context.Context, companyName string, result models.LogoResult) error {
	if companyName == "" {
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return models.NewInternalError("LOGO_MARSHAL", "failed to marshal logo result").WithCause(err)
	}
	return s.client.Set(ctx, logoKey(companyName), payload, sessionTTL).Err()
}

func (s *SessionStore) GetLogo(ctx context.Context, companyName string) (*models.LogoResult, error) {
	payload, err := s.client.Get(ctx, logoKey(companyName)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result models.LogoResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, models.NewParseError("LOGO_UNMARSHAL", "corrupt cached logo").WithCause(err)
	}
	return &result, nil
}

// SaveContact remembers the submitted contact details for 30 days so the
// analysis form can be pre-filled on the next visit.
func (s *SessionStore) SaveContact(ctx context.Context, contact models.CachedContact) error {
	if contact.Email == "" {
		return nil
	}
	contact.LastUsed = time.Now()

	payload, err := json.Marshal(contact)
	if err != nil {
		return models.NewInternalError("CONTACT_MARSHAL", "failed to marshal contact").WithCause(err)
	}
	return s.client.Set(ctx, contactKey(contact.Email), payload, models.ContactCacheTTL).Err()
}

func (s *SessionStore) GetContact(ctx context.Context, email string) (*models.CachedContact, error) {
	payload, err := s.client.Get(ctx, contactKey(email)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var contact models.CachedContact
	if err := json.Unmarshal(payload, &contact); err != nil {
		return nil, models.NewParseError("CONTACT_UNMARSHAL", "corrupt cached contact").WithCause(err)
	}
	return &contact, nil
}

// ClearSession drops all keys belonging to a session.
func (s *SessionStore) ClearSession(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx,
		snapshotKey(sessionID),
		websiteURLKey(sessionID),
		originalPromptKey(sessionID),
	).Err()
}

func (s *SessionStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}
