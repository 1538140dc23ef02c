package cookies

import (
	"strings"

	"github.com/pkg/errors"
)

// LocalDomain is the sentinel returned when no apex domain is configured.
// Browsers reject "Domain=localhost", so writers treat this value as
// "omit the Domain attribute" and let the cookie default to the current host.
const LocalDomain = "localhost"

// ResolveDomain computes the Domain attribute for cookies from the
// configured apex domain and the deployment environment.
//
//	unset apex            -> LocalDomain (attribute omitted on write)
//	apex + production     -> "." + apex  (shared across all subdomains)
//	apex + non-production -> apex verbatim (no accidental sharing)
//
// configuredApex must be a bare hostname. A single trailing dot is
// normalised away; schemes, paths, ports and leading dots are rejected
// because a malformed Domain attribute silently breaks cross-subdomain
// single sign-on.
func ResolveDomain(configuredApex string, production bool) (string, error) {
	apex := strings.TrimSpace(configuredApex)
	if apex == "" {
		return LocalDomain, nil
	}

	apex = strings.TrimSuffix(apex, ".")

	if err := validateHostname(apex); err != nil {
		return "", errors.Wrap(err, "[ResolveDomain] invalid apex domain")
	}

	if production {
		return "." + apex, nil
	}
	return apex, nil
}

func validateHostname(host string) error {
	switch {
	case host == "":
		return errors.New("empty hostname")
	case strings.Contains(host, "://"):
		return errors.New("hostname must not contain a scheme")
	case strings.ContainsAny(host, "/?#"):
		return errors.New("hostname must not contain a path")
	case strings.Contains(host, ":"):
		return errors.New("hostname must not contain a port")
	case strings.HasPrefix(host, "."):
		return errors.New("hostname must not have a leading dot")
	case strings.Contains(host, ".."):
		return errors.New("hostname must not contain empty labels")
	case strings.ContainsAny(host, " \t"):
		return errors.New("hostname must not contain whitespace")
	}
	return nil
}
