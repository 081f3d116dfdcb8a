// Package repository implements SearchDefinitionRepository:
// CRUD surfaces over the persistent store's four search-definition
// tables, each validated through an injected Validator before write.
package repository

import (
	"context"

	"github.com/rohitkatta517/azdevcache/internal/errs"
)

// Validator is the narrow collaborator contract this package consumes: a
// search definition's URL (and the account it resolves against) is
// validated before being persisted. The concrete implementation (URL
// parsing, project reachability) lives outside this package's scope.
type Validator interface {
	Validate(ctx context.Context, url string) (InfoResult, error)
}

// InfoResult is the outcome of a successful validation.
type InfoResult struct {
	HostKind string
	Org      string
	Project  string
}

// validateOrWrap runs v.Validate and converts a failure into an
// errs.KindValidation error.
func validateOrWrap(ctx context.Context, v Validator, url string) (InfoResult, error) {
	if v == nil {
		return InfoResult{}, nil
	}
	info, err := v.Validate(ctx, url)
	if err != nil {
		return InfoResult{}, errs.Validation("invalid search definition", err)
	}
	return info, nil
}
