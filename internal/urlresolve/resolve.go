// Package urlresolve decomposes a saved search definition's URL into the
// organization/project/sub-resource triple needed to resolve a remote
// connection, and implements the repository.Validator seam by checking
// that the decomposed project is actually reachable.
package urlresolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rohitkatta517/azdevcache/internal/errs"
	"github.com/rohitkatta517/azdevcache/internal/liveclient"
	"github.com/rohitkatta517/azdevcache/internal/model"
	"github.com/rohitkatta517/azdevcache/internal/repository"
)

// Parse decomposes rawURL into a ParsedURL. Two host shapes are
// recognized: "dev.azure.com/{org}/{project}[/...]" and
// "{org}.visualstudio.com/{project}[/...]". Any other host fails with
// errs.ErrValidation.
func Parse(rawURL string) (model.ParsedURL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.ParsedURL{}, errs.Validation("malformed url", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return model.ParsedURL{}, errs.Validation(fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}

	segments := splitPath(u.Path)

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "dev.azure.com":
		if len(segments) < 2 {
			return model.ParsedURL{}, errs.Validation("dev.azure.com url missing org/project", nil)
		}
		return model.ParsedURL{
			HostKind:    "dev.azure.com",
			Org:         segments[0],
			Project:     segments[1],
			SubResource: strings.Join(segments[2:], "/"),
		}, nil

	case strings.HasSuffix(host, ".visualstudio.com"):
		org := strings.TrimSuffix(host, ".visualstudio.com")
		if org == "" || len(segments) < 1 {
			return model.ParsedURL{}, errs.Validation("visualstudio.com url missing org/project", nil)
		}
		return model.ParsedURL{
			HostKind:    "visualstudio.com",
			Org:         org,
			Project:     segments[0],
			SubResource: strings.Join(segments[1:], "/"),
		}, nil

	default:
		return model.ParsedURL{}, errs.Validation(fmt.Sprintf("unrecognized host %q", u.Hostname()), nil)
	}
}

// ParseOrg decomposes an organization-only URL (no project segment, e.g.
// a ProjectSettings.OrganizationURL) into a ParsedURL with Project left
// empty. Used by MyWorkItemsUpdater, which is given the project name
// separately.
func ParseOrg(rawURL string) (model.ParsedURL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.ParsedURL{}, errs.Validation("malformed url", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return model.ParsedURL{}, errs.Validation(fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "dev.azure.com":
		segments := splitPath(u.Path)
		if len(segments) < 1 {
			return model.ParsedURL{}, errs.Validation("dev.azure.com url missing org", nil)
		}
		return model.ParsedURL{HostKind: "dev.azure.com", Org: segments[0]}, nil

	case strings.HasSuffix(host, ".visualstudio.com"):
		org := strings.TrimSuffix(host, ".visualstudio.com")
		if org == "" {
			return model.ParsedURL{}, errs.Validation("visualstudio.com url missing org", nil)
		}
		return model.ParsedURL{HostKind: "visualstudio.com", Org: org}, nil

	default:
		return model.ParsedURL{}, errs.Validation(fmt.Sprintf("unrecognized host %q", u.Hostname()), nil)
	}
}

// ConnectionURI builds the canonical organization connection string for
// p: the value cached as Organization.Connection and used as the
// liveclient.Pool key.
func ConnectionURI(p model.ParsedURL) string {
	switch p.HostKind {
	case "dev.azure.com":
		return "https://dev.azure.com/" + p.Org
	default:
		return "https://" + p.Org + ".visualstudio.com"
	}
}

func splitPath(p string) []string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Resolver implements repository.Validator by parsing the URL and
// confirming the project is reachable through conns/client under the
// signed-in account.
type Resolver struct {
	Accounts liveclient.AccountProvider
	Conns    liveclient.ConnectionProvider
	Client   liveclient.LiveClient
}

// Validate parses rawURL and checks project reachability, returning the
// resolved (host kind, org, project) triple as an InfoResult.
func (r Resolver) Validate(ctx context.Context, rawURL string) (repository.InfoResult, error) {
	parsed, err := Parse(rawURL)
	if err != nil {
		return repository.InfoResult{}, err
	}

	account, err := r.Accounts.GetDefaultAccount(ctx)
	if err != nil {
		return repository.InfoResult{}, errs.Validation("not signed in", err)
	}
	conn, err := r.Conns.GetConnection(ctx, ConnectionURI(parsed), account)
	if err != nil {
		return repository.InfoResult{}, errs.Validation("cannot connect to organization", err)
	}
	if _, err := r.Client.GetProject(ctx, conn, parsed.Project); err != nil {
		return repository.InfoResult{}, errs.Validation("project not reachable", err)
	}

	return repository.InfoResult{HostKind: parsed.HostKind, Org: parsed.Org, Project: parsed.Project}, nil
}
