package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/storage/redis"

	"github.com/churnaizer/churnaizer/internal/pkg/cache"
	"github.com/churnaizer/churnaizer/internal/pkg/env"
)

// Dashboard sessions are bearer tokens mapped to the owner's UUID in
// Redis. Tokens expire server-side; logout deletes them eagerly.

const tokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired session token")

var store *redis.Storage

// Setup creates the Redis-backed token store. Sessions live in
// database 1, separate from the cache (DB 0).
func Setup() {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")

	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	store = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}

func getStore() *redis.Storage {
	if store == nil {
		Setup()
	}
	return store
}

// Create issues a new bearer token for the given owner UUID.
func Create(ownerUUID string) (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := "sess_" + hex.EncodeToString(b)

	if err := getStore().Set(token, []byte(ownerUUID), tokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a bearer token to the owner UUID it was issued for.
func Lookup(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	value, err := getStore().Get(token)
	if err != nil {
		return "", err
	}
	if len(value) == 0 {
		return "", ErrInvalidToken
	}
	return string(value), nil
}

// Destroy invalidates a bearer token.
func Destroy(token string) error {
	if token == "" {
		return nil
	}
	return getStore().Delete(token)
}
