package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullDocument(t *testing.T) {
	raw := []byte(`{
		"@context": ["https://www.w3.org/ns/credentials/v2"],
		"id": "urn:uuid:9f8d1f30",
		"type": ["VerifiableCredential", "OpenBadgeCredential"],
		"issuer": {"id": "did:web:badges.example.edu", "name": "Example University"},
		"validFrom": "2024-01-15T00:00:00Z",
		"validUntil": "2030-01-15T00:00:00Z",
		"credentialSubject": {"id": "did:key:z6Mk", "achievement": {"name": "Gopher"}},
		"credentialStatus": {
			"type": "BitstringStatusListEntry",
			"statusPurpose": "revocation",
			"statusListIndex": "94567",
			"statusListCredential": "https://badges.example.edu/status/3"
		},
		"credentialSchema": [{"id": "https://example.org/schema.json", "type": "JsonSchemaValidator2018"}],
		"proof": {
			"type": "DataIntegrityProof",
			"cryptosuite": "eddsa-rdfc-2022",
			"verificationMethod": "did:web:badges.example.edu#key-1",
			"proofPurpose": "assertionMethod",
			"proofValue": "z58xkp"
		}
	}`)

	cred, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "urn:uuid:9f8d1f30", cred.ID)
	assert.Equal(t, []string{"VerifiableCredential", "OpenBadgeCredential"}, cred.Types)
	assert.Equal(t, "did:web:badges.example.edu", cred.Issuer.ID)
	assert.Equal(t, "Example University", cred.Issuer.Name)
	assert.Equal(t, "2024-01-15T00:00:00Z", cred.IssuanceDate)
	assert.Equal(t, "2030-01-15T00:00:00Z", cred.ExpirationDate)
	assert.True(t, cred.HasBaseType())

	require.NotNil(t, cred.CredentialStatus)
	assert.Equal(t, "BitstringStatusListEntry", cred.CredentialStatus.Type)
	assert.Equal(t, "94567", cred.CredentialStatus.StatusListIndex)

	require.Len(t, cred.CredentialSchema, 1)
	assert.Equal(t, "https://example.org/schema.json", cred.CredentialSchema[0].ID)

	require.Len(t, cred.Proofs, 1)
	assert.Equal(t, "DataIntegrityProof", cred.Proofs[0].Type)
	assert.Equal(t, "eddsa-rdfc-2022", cred.Proofs[0].Cryptosuite)
}

func TestParseIssuerString(t *testing.T) {
	cred, err := Parse([]byte(`{"type": ["VerifiableCredential"], "issuer": "https://badges.example.edu/issuer"}`))
	require.NoError(t, err)
	assert.Equal(t, "https://badges.example.edu/issuer", cred.Issuer.ID)
	assert.Empty(t, cred.Issuer.Name)
}

func TestParseProofArray(t *testing.T) {
	cred, err := Parse([]byte(`{
		"type": ["VerifiableCredential"],
		"issuer": "did:web:a.example",
		"proof": [
			{"type": "Ed25519Signature2020", "proofValue": "z1"},
			{"type": "EcdsaSecp256k1Signature2019", "proofValue": "z2"}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, cred.Proofs, 2)
	assert.Equal(t, "Ed25519Signature2020", cred.Proofs[0].Type)
	assert.Equal(t, "EcdsaSecp256k1Signature2019", cred.Proofs[1].Type)
}

func TestParseMissingFieldsTolerated(t *testing.T) {
	cred, err := Parse([]byte(`{"type": ["VerifiableCredential"]}`))
	require.NoError(t, err)
	assert.Empty(t, cred.ID)
	assert.Empty(t, cred.Issuer.ID)
	assert.Empty(t, cred.IssuanceDate)
	assert.Nil(t, cred.CredentialStatus)
	assert.Empty(t, cred.Proofs)
}

func TestParseRejectsNonObject(t *testing.T) {
	_, err := Parse([]byte(`[1, 2, 3]`))
	assert.Error(t, err)
}

func TestHasBaseType(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  bool
	}{
		{"verifiable credential", []string{"VerifiableCredential"}, true},
		{"open badge", []string{"OpenBadgeCredential"}, true},
		{"achievement", []string{"AchievementCredential", "Extension"}, true},
		{"unrelated", []string{"Presentation"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := &Credential{Types: tt.types}
			assert.Equal(t, tt.want, cred.HasBaseType())
		})
	}
}

func TestMarshalRoundTripsRawDocument(t *testing.T) {
	raw := []byte(`{"type":["VerifiableCredential"],"issuer":"did:web:a.example","custom":{"nested":true}}`)
	cred, err := Parse(raw)
	require.NoError(t, err)

	out, err := cred.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}
