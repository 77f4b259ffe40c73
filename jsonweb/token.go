package jsonweb

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/kit/platform/errors"
)

var (
	// ErrKeyNotFound is returned by a KeyStore when no key matches the kid.
	ErrKeyNotFound = &errors.Error{
		Code: errors.EForbidden,
		Msg:  "key not found",
	}

	errInvalidToken = &errors.Error{
		Code: errors.EForbidden,
		Msg:  "invalid or expired token",
	}
)

// KeyStore is a type which holds verification keys indexed by key ID.
type KeyStore interface {
	Key(kid string) ([]byte, error)
}

// KeyStoreFunc is a function which can be used as a KeyStore.
type KeyStoreFunc func(kid string) ([]byte, error)

// Key delegates to the receiver function.
func (k KeyStoreFunc) Key(kid string) ([]byte, error) {
	return k(kid)
}

// SingleKeyStore returns a KeyStore which holds exactly one key.
func SingleKeyStore(kid string, key []byte) KeyStore {
	return KeyStoreFunc(func(k string) ([]byte, error) {
		if k != kid {
			return nil, ErrKeyNotFound
		}
		return key, nil
	})
}

// Token is the claim set carried by a taskd bearer token. The subject claim
// holds the user ID; nothing else in the token is trusted.
type Token struct {
	jwt.RegisteredClaims
	KeyID string `json:"kid,omitempty"`
}

// UserID parses the subject claim into a user ID.
func (t *Token) UserID() (taskd.ID, error) {
	return taskd.IDFromString(t.Subject)
}

// TokenParser verifies HMAC-signed bearer tokens against a KeyStore.
type TokenParser struct {
	keyStore KeyStore
	parser   *jwt.Parser
}

// NewTokenParser returns a new TokenParser.
func NewTokenParser(keyStore KeyStore) *TokenParser {
	return &TokenParser{
		keyStore: keyStore,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		),
	}
}

// Parse verifies a token string and returns its claims. Expired, malformed
// and badly signed tokens all produce the same forbidden error.
func (t *TokenParser) Parse(v string) (*Token, error) {
	jt, err := t.parser.ParseWithClaims(v, &Token{}, func(jt *jwt.Token) (interface{}, error) {
		claims, ok := jt.Claims.(*Token)
		if !ok {
			return nil, errInvalidToken
		}
		return t.keyStore.Key(claims.KeyID)
	})
	if err != nil {
		return nil, &errors.Error{
			Code: errors.EForbidden,
			Msg:  errInvalidToken.Msg,
			Err:  err,
		}
	}

	token, ok := jt.Claims.(*Token)
	if !ok || !jt.Valid {
		return nil, errInvalidToken
	}

	return token, nil
}

// TokenSigner mints bearer tokens for authenticated users.
type TokenSigner struct {
	keyID string
	key   []byte
}

// NewTokenSigner returns a signer using a single HMAC key.
func NewTokenSigner(keyID string, key []byte) *TokenSigner {
	return &TokenSigner{keyID: keyID, key: key}
}

// Sign returns a signed token for userID which expires after ttl.
func (s *TokenSigner) Sign(userID taskd.ID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Token{
		KeyID: s.keyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}
