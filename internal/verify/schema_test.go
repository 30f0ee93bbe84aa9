package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"badgekeeper/internal/credential"
)

func TestCheckBaseType(t *testing.T) {
	tests := []struct {
		name     string
		types    []any
		wantPass bool
	}{
		{"verifiable credential", []any{"VerifiableCredential"}, true},
		{"open badge", []any{"VerifiableCredential", "OpenBadgeCredential"}, true},
		{"achievement credential", []any{"AchievementCredential"}, true},
		{"unrecognized", []any{"DriverLicense"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := map[string]any{}
			if tt.types != nil {
				doc["type"] = tt.types
			}
			cred, err := credential.FromMap(doc)
			require.NoError(t, err)

			check := checkBaseType(cred)
			assert.Equal(t, "schema.type", check.Check)
			assert.Equal(t, tt.wantPass, check.Passed)
		})
	}
}

const achievementSchema = `{
	"type": "object",
	"required": ["credentialSubject"],
	"properties": {
		"credentialSubject": {
			"type": "object",
			"required": ["achievement"]
		}
	}
}`

func stubSchemaLoader(schemas map[string]string) schemaLoader {
	return func(id string) gojsonschema.JSONLoader {
		body, ok := schemas[id]
		if !ok {
			body = "{invalid"
		}
		return gojsonschema.NewStringLoader(body)
	}
}

func schemaCredential(t *testing.T, subject map[string]any, refs ...map[string]any) *credential.Credential {
	t.Helper()
	doc := map[string]any{
		"type":              []any{"VerifiableCredential"},
		"credentialSubject": subject,
	}
	if len(refs) > 0 {
		entries := make([]any, 0, len(refs))
		for _, ref := range refs {
			entries = append(entries, ref)
		}
		doc["credentialSchema"] = entries
	}
	cred, err := credential.FromMap(doc)
	require.NoError(t, err)
	return cred
}

func TestCheckDeclaredSchemas(t *testing.T) {
	load := stubSchemaLoader(map[string]string{
		"https://schemas.example.edu/achievement.json": achievementSchema,
	})
	jsonSchemaRef := map[string]any{
		"id":   "https://schemas.example.edu/achievement.json",
		"type": "1EdTechJsonSchemaValidator2019",
	}

	t.Run("conforming credential passes", func(t *testing.T) {
		cred := schemaCredential(t, map[string]any{"achievement": "x"}, jsonSchemaRef)
		checks := checkDeclaredSchemas(cred, load)
		require.Len(t, checks, 1)
		assert.True(t, checks[0].Passed, checks[0].Error)
		assert.Equal(t, "schema.credential_schema", checks[0].Check)
		assert.Equal(t, "https://schemas.example.edu/achievement.json", checks[0].Details["schema"])
	})

	t.Run("violating credential fails", func(t *testing.T) {
		cred := schemaCredential(t, map[string]any{"other": "x"}, jsonSchemaRef)
		checks := checkDeclaredSchemas(cred, load)
		require.Len(t, checks, 1)
		assert.False(t, checks[0].Passed)
		assert.Contains(t, checks[0].Error, "achievement")
	})

	t.Run("non json-schema references are skipped", func(t *testing.T) {
		cred := schemaCredential(t, map[string]any{"achievement": "x"}, map[string]any{
			"id":   "https://schemas.example.edu/shacl",
			"type": "ShaclValidator",
		})
		assert.Empty(t, checkDeclaredSchemas(cred, load))
	})

	t.Run("unloadable schema fails", func(t *testing.T) {
		cred := schemaCredential(t, map[string]any{"achievement": "x"}, map[string]any{
			"id":   "https://schemas.example.edu/missing.json",
			"type": "JsonSchema",
		})
		checks := checkDeclaredSchemas(cred, load)
		require.Len(t, checks, 1)
		assert.False(t, checks[0].Passed)
		assert.Contains(t, checks[0].Error, "load schema")
	})

	t.Run("no declared schemas yields no checks", func(t *testing.T) {
		cred := schemaCredential(t, map[string]any{"achievement": "x"})
		assert.Empty(t, checkDeclaredSchemas(cred, load))
	})
}
