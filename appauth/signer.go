// Copyright 2024 Palantir Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package appauth

import (
	"crypto/rsa"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

const (
	// DefaultAssertionLifetime bounds exp relative to iat. GitHub rejects
	// assertions claiming more than ten minutes of validity.
	DefaultAssertionLifetime = 10 * time.Minute

	// DefaultClockDrift backdates iat so a process clock slightly ahead
	// of GitHub's still produces an acceptable assertion.
	DefaultClockDrift = 60 * time.Second
)

// signer produces the short-lived RS256 assertions that prove App
// identity during a token exchange.
type signer struct {
	appID int64
	key   *rsa.PrivateKey

	lifetime time.Duration
	drift    time.Duration
	now      func() time.Time
}

func newSigner(appID int64, keyBytes []byte) (*signer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyBytes)
	if err != nil {
		return nil, configErrorf("private key is not a PEM-encoded RSA key: %v", err)
	}
	return &signer{
		appID:    appID,
		key:      key,
		lifetime: DefaultAssertionLifetime,
		drift:    DefaultClockDrift,
		now:      time.Now,
	}, nil
}

// Sign returns a fresh signed assertion. The issuer is the App ID, iat is
// backdated by the drift allowance, and exp is set relative to the
// backdated iat so the effective validity stays under GitHub's cap even
// when clocks disagree by up to the allowance.
func (s *signer) Sign() (string, error) {
	iat := s.now().Add(-s.drift)
	claims := &jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(s.appID, 10),
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(s.lifetime)),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign app assertion")
	}
	return assertion, nil
}
