package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Resolvers, caches, and fetchers
// return these (optionally wrapped) so services can translate them into domain
// errors or check outcomes.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity does not exist (cache miss, unresolvable identifier)
//   - ErrUnsupported: the operation is recognized but not handled (DID method)
//   - ErrUnavailable: endpoint temporarily unreachable; distinguishes "could not
//     check" from "checked and failed" when classifying verification outcomes
var (
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported")
	ErrUnavailable = errors.New("unavailable")
)
