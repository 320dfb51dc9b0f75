// Copyright (c) 2026 Veranda. All rights reserved.
// Author: danh.que.dev@gmail.com

package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danhque/veranda/internal/platform/apperr"
	"github.com/danhque/veranda/internal/platform/constants"
)

// # Reset Token Repository

// RedisResetTokenRepository implements ResetTokenRepository using Redis.
type RedisResetTokenRepository struct {
	client *redis.Client
}

// NewResetTokenRepository creates a new Redis-backed ResetTokenRepository.
func NewResetTokenRepository(client *redis.Client) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

/*
Set stores a reset token with its associated userID and TTL.

Parameters:
  - context: context.Context
  - token: string
  - userID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisResetTokenRepository) Set(context context.Context, token string, userID string, ttl time.Duration) error {
	key := constants.RedisPrefixResetToken + token

	if err := repository.client.Set(context, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_set_failed: %w", err)
	}

	return nil
}

/*
Get retrieves the userID for a given token.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - string: Original UserID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisResetTokenRepository) Get(context context.Context, token string) (string, error) {
	key := constants.RedisPrefixResetToken + token

	userID, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Reset token is invalid or expired")
		}
		return "", fmt.Errorf("redis_reset_token_get_failed: %w", err)
	}

	return userID, nil
}

/*
Delete removes the token from Redis.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisResetTokenRepository) Delete(context context.Context, token string) error {
	key := constants.RedisPrefixResetToken + token

	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_delete_failed: %w", err)
	}

	return nil
}

// # Confirmation Token Repository

// RedisConfirmTokenRepository implements ConfirmTokenRepository using Redis.
type RedisConfirmTokenRepository struct {
	client *redis.Client
}

// NewConfirmTokenRepository creates a new Redis-backed ConfirmTokenRepository.
func NewConfirmTokenRepository(client *redis.Client) *RedisConfirmTokenRepository {
	return &RedisConfirmTokenRepository{client: client}
}

/*
Set stores an email confirmation token with its associated userID and TTL.

Parameters:
  - context: context.Context
  - token: string
  - userID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisConfirmTokenRepository) Set(context context.Context, token string, userID string, ttl time.Duration) error {
	key := constants.RedisPrefixConfirmToken + token

	if err := repository.client.Set(context, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_confirm_token_set_failed: %w", err)
	}

	return nil
}

/*
Get retrieves the userID for a given confirmation token.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - string: Original UserID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisConfirmTokenRepository) Get(context context.Context, token string) (string, error) {
	key := constants.RedisPrefixConfirmToken + token

	userID, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Confirmation token is invalid or expired")
		}
		return "", fmt.Errorf("redis_confirm_token_get_failed: %w", err)
	}

	return userID, nil
}

/*
Delete removes the confirmation token from Redis.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisConfirmTokenRepository) Delete(context context.Context, token string) error {
	key := constants.RedisPrefixConfirmToken + token

	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_confirm_token_delete_failed: %w", err)
	}

	return nil
}

// # Pending External Profile Repository

// RedisExternalProfileRepository implements ExternalProfileRepository using
// Redis, serializing the pending profile as JSON.
type RedisExternalProfileRepository struct {
	client *redis.Client
}

// NewExternalProfileRepository creates a new Redis-backed ExternalProfileRepository.
func NewExternalProfileRepository(client *redis.Client) *RedisExternalProfileRepository {
	return &RedisExternalProfileRepository{client: client}
}

/*
Set stores a pending external profile under a token with a TTL.

Parameters:
  - context: context.Context
  - token: string
  - pending: *PendingExternal
  - ttl: time.Duration

Returns:
  - error: Serialization or execution errors
*/
func (repository *RedisExternalProfileRepository) Set(context context.Context, token string, pending *PendingExternal, ttl time.Duration) error {
	key := constants.RedisPrefixExternal + token

	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("redis_external_profile_marshal_failed: %w", err)
	}

	if err := repository.client.Set(context, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_external_profile_set_failed: %w", err)
	}

	return nil
}

/*
Get retrieves the pending external profile for a token.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *PendingExternal: Stored provider identity
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisExternalProfileRepository) Get(context context.Context, token string) (*PendingExternal, error) {
	key := constants.RedisPrefixExternal + token

	payload, err := repository.client.Get(context, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Sign-in request is invalid or expired")
		}
		return nil, fmt.Errorf("redis_external_profile_get_failed: %w", err)
	}

	pending := &PendingExternal{}
	if err := json.Unmarshal(payload, pending); err != nil {
		return nil, fmt.Errorf("redis_external_profile_unmarshal_failed: %w", err)
	}

	return pending, nil
}

/*
Delete consumes a pending external profile token.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisExternalProfileRepository) Delete(context context.Context, token string) error {
	key := constants.RedisPrefixExternal + token

	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_external_profile_delete_failed: %w", err)
	}

	return nil
}

// # Two-Factor State Repository

// RedisTwoFactorRepository implements TwoFactorRepository using Redis.
//
// Pending tokens and security codes live under separate key prefixes so a
// leaked code can never stand in for the pending token or vice versa.
type RedisTwoFactorRepository struct {
	client *redis.Client
}

// NewTwoFactorRepository creates a new Redis-backed TwoFactorRepository.
func NewTwoFactorRepository(client *redis.Client) *RedisTwoFactorRepository {
	return &RedisTwoFactorRepository{client: client}
}

/*
SetPending stores a pending sign-in token mapped to a userID.

Parameters:
  - context: context.Context
  - token: string
  - userID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisTwoFactorRepository) SetPending(context context.Context, token string, userID string, ttl time.Duration) error {
	key := constants.RedisPrefixTwoFactor + token

	if err := repository.client.Set(context, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_twofactor_set_pending_failed: %w", err)
	}

	return nil
}

/*
GetPending retrieves the userID for a pending sign-in token.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - string: Original UserID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisTwoFactorRepository) GetPending(context context.Context, token string) (string, error) {
	key := constants.RedisPrefixTwoFactor + token

	userID, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Sign-in request is invalid or expired")
		}
		return "", fmt.Errorf("redis_twofactor_get_pending_failed: %w", err)
	}

	return userID, nil
}

/*
DeletePending consumes a pending sign-in token.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisTwoFactorRepository) DeletePending(context context.Context, token string) error {
	key := constants.RedisPrefixTwoFactor + token

	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_twofactor_delete_pending_failed: %w", err)
	}

	return nil
}

// codeKey builds the storage key for a (user, provider) security code.
func codeKey(userID, provider string) string {
	return constants.RedisPrefixTwoFactorOTP + userID + ":" + provider
}

/*
SetCode stores the dispatched security code for a (user, provider) pair.

Parameters:
  - context: context.Context
  - userID: string
  - provider: string
  - code: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisTwoFactorRepository) SetCode(context context.Context, userID string, provider string, code string, ttl time.Duration) error {
	if err := repository.client.Set(context, codeKey(userID, provider), code, ttl).Err(); err != nil {
		return fmt.Errorf("redis_twofactor_set_code_failed: %w", err)
	}

	return nil
}

/*
GetCode retrieves the stored security code for a (user, provider) pair.

Description: Returns apperr.NotFound if the code is absent or expired.

Parameters:
  - context: context.Context
  - userID: string
  - provider: string

Returns:
  - string: The dispatched code
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisTwoFactorRepository) GetCode(context context.Context, userID string, provider string) (string, error) {
	code, err := repository.client.Get(context, codeKey(userID, provider)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Security code is invalid or expired")
		}
		return "", fmt.Errorf("redis_twofactor_get_code_failed: %w", err)
	}

	return code, nil
}

/*
DeleteCode consumes the security code for a (user, provider) pair.

Parameters:
  - context: context.Context
  - userID: string
  - provider: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisTwoFactorRepository) DeleteCode(context context.Context, userID string, provider string) error {
	if err := repository.client.Del(context, codeKey(userID, provider)).Err(); err != nil {
		return fmt.Errorf("redis_twofactor_delete_code_failed: %w", err)
	}

	return nil
}

// trustKey builds the storage key for a (user, token hash) trust grant.
func trustKey(userID, tokenHash string) string {
	return constants.RedisPrefixTrusted + userID + ":" + tokenHash
}

/*
AddTrust records a trusted-client grant for a user.

Description: Only the token hash is stored; the raw token lives in the
client's cookie.

Parameters:
  - context: context.Context
  - userID: string
  - tokenHash: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisTwoFactorRepository) AddTrust(context context.Context, userID string, tokenHash string, ttl time.Duration) error {
	if err := repository.client.Set(context, trustKey(userID, tokenHash), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis_twofactor_add_trust_failed: %w", err)
	}

	return nil
}

/*
IsTrusted reports whether a trusted-client grant is live for the user.

Parameters:
  - context: context.Context
  - userID: string
  - tokenHash: string

Returns:
  - bool: Whether the grant exists and has not expired
  - error: Connectivity errors
*/
func (repository *RedisTwoFactorRepository) IsTrusted(context context.Context, userID string, tokenHash string) (bool, error) {
	count, err := repository.client.Exists(context, trustKey(userID, tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("redis_twofactor_is_trusted_failed: %w", err)
	}

	return count > 0, nil
}
