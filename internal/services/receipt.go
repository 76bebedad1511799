package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const receiptAudience = "audio-transcript"

// receiptClaims binds a transcript to the author who uploaded the audio.
type receiptClaims struct {
	Digest string `json:"digest"`
	jwt.RegisteredClaims
}

// TranscriptReceipts signs and checks the receipts returned by the
// transcription endpoint. A submission carrying a valid receipt for its own
// content came out of the audio path and skips the relevance gate.
type TranscriptReceipts struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTranscriptReceipts derives the receipt key from secret. Receipts expire
// after ttl.
func NewTranscriptReceipts(secret string, ttl time.Duration) *TranscriptReceipts {
	return &TranscriptReceipts{
		key: []byte("transcript-receipt:" + secret),
		ttl: ttl,
		now: time.Now,
	}
}

func contentDigest(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])
}

// Issue signs a receipt for content transcribed on behalf of authorID.
func (t *TranscriptReceipts) Issue(authorID, content string) (string, error) {
	if authorID == "" {
		return "", errors.New("receipt needs an author")
	}
	now := t.now()
	claims := receiptClaims{
		Digest: contentDigest(content),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   authorID,
			Audience:  jwt.ClaimStrings{receiptAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign transcript receipt: %w", err)
	}
	return signed, nil
}

// Verify checks that receipt was issued to authorID for exactly content.
func (t *TranscriptReceipts) Verify(receipt, authorID, content string) error {
	if receipt == "" {
		return errors.New("no transcript receipt")
	}
	var claims receiptClaims
	_, err := jwt.ParseWithClaims(receipt, &claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(receiptAudience),
		jwt.WithSubject(authorID),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return fmt.Errorf("invalid transcript receipt: %w", err)
	}
	if claims.Digest != contentDigest(content) {
		return errors.New("transcript receipt does not match the submitted content")
	}
	return nil
}
