package verify

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"badgekeeper/internal/credential"
	"badgekeeper/internal/domain"
)

const (
	typeCheckName   = "schema.type"
	schemaCheckName = "schema.credential_schema"
)

// checkBaseType verifies the credential's type array carries one of the
// recognized base credential types. Failure here is structural: nothing
// downstream can be interpreted without it.
func checkBaseType(cred *credential.Credential) domain.Check {
	desc := "type array declares a recognized base credential type"
	if cred.HasBaseType() {
		return domain.Pass(typeCheckName, desc).
			WithDetail("types", strings.Join(cred.Types, ","))
	}
	return domain.Fail(typeCheckName, desc,
		fmt.Sprintf("credential types %v include no recognized base type", cred.Types))
}

// schemaLoader resolves a declared credentialSchema reference to a
// gojsonschema loader. Tests substitute an in-memory loader.
type schemaLoader func(id string) gojsonschema.JSONLoader

func referenceSchemaLoader(id string) gojsonschema.JSONLoader {
	return gojsonschema.NewReferenceLoader(id)
}

// checkDeclaredSchemas validates the credential document against every
// declared JSON-schema reference. Non-JSON-schema references are skipped.
func checkDeclaredSchemas(cred *credential.Credential, load schemaLoader) []domain.Check {
	var checks []domain.Check
	for _, ref := range cred.CredentialSchema {
		if !strings.Contains(ref.Type, "JsonSchema") {
			continue
		}
		desc := fmt.Sprintf("credential conforms to schema %s", ref.ID)
		schema, err := gojsonschema.NewSchema(load(ref.ID))
		if err != nil {
			checks = append(checks, domain.Fail(schemaCheckName, desc,
				fmt.Sprintf("load schema %s: %v", ref.ID, err)))
			continue
		}
		result, err := schema.Validate(gojsonschema.NewGoLoader(cred.Raw))
		if err != nil {
			checks = append(checks, domain.Fail(schemaCheckName, desc,
				fmt.Sprintf("validate against %s: %v", ref.ID, err)))
			continue
		}
		if !result.Valid() {
			var problems []string
			for _, issue := range result.Errors() {
				problems = append(problems, issue.String())
			}
			checks = append(checks, domain.Fail(schemaCheckName, desc, strings.Join(problems, "; ")).
				WithDetail("schema", ref.ID))
			continue
		}
		checks = append(checks, domain.Pass(schemaCheckName, desc).WithDetail("schema", ref.ID))
	}
	return checks
}
