package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"badgekeeper/internal/credential"
)

func temporalCredential(t *testing.T, issuance, expiration string) *credential.Credential {
	t.Helper()
	doc := map[string]any{"type": []any{"VerifiableCredential"}}
	if issuance != "" {
		doc["issuanceDate"] = issuance
	}
	if expiration != "" {
		doc["expirationDate"] = expiration
	}
	cred, err := credential.FromMap(doc)
	require.NoError(t, err)
	return cred
}

func TestCheckIssuance(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		issuance  string
		tolerance time.Duration
		wantPass  bool
		wantErr   string
	}{
		{
			name:     "past issuance passes",
			issuance: "2026-01-10T09:00:00Z",
			wantPass: true,
		},
		{
			name:    "missing issuance fails",
			wantErr: "declares no issuance timestamp",
		},
		{
			name:     "future issuance fails",
			issuance: "2026-03-15T13:00:00Z",
			wantErr:  "issued in the future",
		},
		{
			name:      "future within tolerance passes",
			issuance:  "2026-03-15T12:00:30Z",
			tolerance: time.Minute,
			wantPass:  true,
		},
		{
			name:     "unparseable issuance fails",
			issuance: "not-a-date",
			wantErr:  "unparseable issuance timestamp",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := checkIssuance(temporalCredential(t, tt.issuance, ""), now, tt.tolerance)
			assert.Equal(t, "temporal.issuance", check.Check)
			if tt.wantPass {
				assert.True(t, check.Passed, check.Error)
				return
			}
			require.False(t, check.Passed)
			assert.Contains(t, check.Error, tt.wantErr)
		})
	}
}

func TestCheckExpiration(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("no expiration passes", func(t *testing.T) {
		check := checkExpiration(temporalCredential(t, "", ""), now, 0, false)
		assert.True(t, check.Passed)
		assert.Equal(t, false, check.Details["expires"])
	})

	t.Run("future expiration passes", func(t *testing.T) {
		check := checkExpiration(temporalCredential(t, "", "2027-01-01T00:00:00Z"), now, 0, false)
		assert.True(t, check.Passed)
	})

	t.Run("past expiration fails", func(t *testing.T) {
		check := checkExpiration(temporalCredential(t, "", "2026-02-01T00:00:00Z"), now, 0, false)
		require.False(t, check.Passed)
		assert.Contains(t, check.Error, "expired at 2026-02-01T00:00:00Z")
		assert.Equal(t, "2026-02-01T00:00:00Z", check.Details["expiredAt"])
	})

	t.Run("past expiration within tolerance passes", func(t *testing.T) {
		check := checkExpiration(temporalCredential(t, "", "2026-03-15T11:59:30Z"), now, time.Minute, false)
		assert.True(t, check.Passed, check.Error)
	})

	t.Run("allow expired overrides", func(t *testing.T) {
		check := checkExpiration(temporalCredential(t, "", "2026-02-01T00:00:00Z"), now, 0, true)
		assert.True(t, check.Passed)
		assert.Equal(t, true, check.Details["expired"])
		assert.Equal(t, true, check.Details["allowExpired"])
	})

	t.Run("unparseable expiration fails", func(t *testing.T) {
		check := checkExpiration(temporalCredential(t, "", "soon"), now, 0, false)
		require.False(t, check.Passed)
		assert.Contains(t, check.Error, "unparseable expiration timestamp")
	})
}

func TestParseInstantAcceptsValidUntilAlias(t *testing.T) {
	cred, err := credential.FromMap(map[string]any{
		"type":       []any{"VerifiableCredential"},
		"validFrom":  "2026-01-10T09:00:00Z",
		"validUntil": "2027-01-10T09:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-10T09:00:00Z", cred.IssuanceDate)
	assert.Equal(t, "2027-01-10T09:00:00Z", cred.ExpirationDate)
}
