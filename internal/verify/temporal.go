package verify

import (
	"fmt"
	"time"

	"badgekeeper/internal/credential"
	"badgekeeper/internal/domain"
)

const (
	issuanceCheckName   = "temporal.issuance"
	expirationCheckName = "temporal.expiration"
)

// checkIssuance enforces that the credential declares an issuance instant
// and that it does not lie in the future beyond the clock tolerance.
func checkIssuance(cred *credential.Credential, now time.Time, tolerance time.Duration) domain.Check {
	desc := "issuance timestamp is present and not in the future"
	if cred.IssuanceDate == "" {
		return domain.Fail(issuanceCheckName, desc, "credential declares no issuance timestamp")
	}
	issued, err := parseInstant(cred.IssuanceDate)
	if err != nil {
		return domain.Fail(issuanceCheckName, desc, fmt.Sprintf("unparseable issuance timestamp %q", cred.IssuanceDate))
	}
	if issued.After(now.Add(tolerance)) {
		return domain.Fail(issuanceCheckName, desc,
			fmt.Sprintf("credential issued in the future (%s)", issued.Format(time.RFC3339))).
			WithDetail("issuedAt", issued.Format(time.RFC3339))
	}
	return domain.Pass(issuanceCheckName, desc)
}

// checkExpiration passes when no expiration is declared; a declared
// expiration in the past fails unless explicitly overridden.
func checkExpiration(cred *credential.Credential, now time.Time, tolerance time.Duration, allowExpired bool) domain.Check {
	desc := "credential has not expired"
	if cred.ExpirationDate == "" {
		return domain.Pass(expirationCheckName, desc).WithDetail("expires", false)
	}
	expires, err := parseInstant(cred.ExpirationDate)
	if err != nil {
		return domain.Fail(expirationCheckName, desc, fmt.Sprintf("unparseable expiration timestamp %q", cred.ExpirationDate))
	}
	if expires.Before(now.Add(-tolerance)) {
		if allowExpired {
			return domain.Pass(expirationCheckName, desc).
				WithDetail("expired", true).
				WithDetail("allowExpired", true).
				WithDetail("expiredAt", expires.Format(time.RFC3339))
		}
		return domain.Fail(expirationCheckName, desc,
			fmt.Sprintf("credential expired at %s", expires.Format(time.RFC3339))).
			WithDetail("expiredAt", expires.Format(time.RFC3339))
	}
	return domain.Pass(expirationCheckName, desc)
}

func parseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05Z0700", raw)
}
