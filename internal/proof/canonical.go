package proof

import (
	"crypto/sha256"
	"fmt"

	"github.com/piprate/json-gold/ld"
)

type documentLoader = ld.DocumentLoader

// defaultLoader caches remote JSON-LD contexts so repeated verifications do
// not refetch the same context documents.
func defaultLoader() documentLoader {
	return ld.NewCachingDocumentLoader(ld.NewDefaultDocumentLoader(nil))
}

// WithDocumentLoader overrides the JSON-LD context loader, letting tests run
// against local contexts only.
func (v *Verifier) WithDocumentLoader(loader documentLoader) *Verifier {
	v.loader = loader
	return v
}

// canonicalize normalizes a document to URDNA2015 N-Quads.
func (v *Verifier) canonicalize(doc map[string]any) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("canonicalize: document is nil")
	}

	processor := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")
	options.Format = "application/n-quads"
	options.Algorithm = ld.AlgorithmURDNA2015
	options.DocumentLoader = v.loader

	normalized, err := processor.Normalize(doc, options)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}

	quads, ok := normalized.(string)
	if !ok {
		return nil, fmt.Errorf("canonicalize: unexpected normalization result %T", normalized)
	}
	return []byte(quads), nil
}

// verificationData produces the Data-Integrity verification input: the SHA-256
// digest of the canonical proof configuration concatenated with the SHA-256
// digest of the canonical unsecured document.
func (v *Verifier) verificationData(unsecured, proofConfig map[string]any) ([]byte, error) {
	canonicalProof, err := v.canonicalize(proofConfig)
	if err != nil {
		return nil, fmt.Errorf("proof configuration: %w", err)
	}
	canonicalDoc, err := v.canonicalize(unsecured)
	if err != nil {
		return nil, fmt.Errorf("credential document: %w", err)
	}

	proofHash := sha256.Sum256(canonicalProof)
	docHash := sha256.Sum256(canonicalDoc)

	data := make([]byte, 0, sha256.Size*2)
	data = append(data, proofHash[:]...)
	data = append(data, docHash[:]...)
	return data, nil
}
