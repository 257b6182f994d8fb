package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Values of the form secret://name (or the older sm://name) are resolved through the
// configured SecretResolver before validation.
const (
	secretScheme       = "secret://"
	legacySecretScheme = "sm://"
)

// SecretResolver resolves secret:// references, normally against Secret Manager.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// SecretError reports a reference that could not be resolved.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError lists required secret-backed fields that resolved to nothing. Names are
// only logged in redacted form.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// Names returns the missing field names, sorted.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	return slices.Clone(e.names)
}

// RedactedNames returns a short hash of each missing field name, sorted.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil {
		return nil
	}
	out := lo.Map(e.names, func(name string, _ int) string { return redactSecretName(name) })
	slices.Sort(out)
	return out
}

// secretField binds a config field to the name callers use in WithRequiredSecrets.
type secretField struct {
	name  string
	value *string
}

func resolveSecrets(ctx context.Context, resolver SecretResolver, fields []secretField) (map[string]string, error) {
	resolved := make(map[string]string, len(fields))
	for _, f := range fields {
		raw := strings.TrimSpace(*f.value)
		ref, ok := secretRef(raw)
		if ok {
			if resolver == nil {
				return nil, &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
			}
			value, err := resolver.ResolveSecret(ctx, ref)
			if err != nil {
				return nil, &SecretError{Ref: ref, Err: err}
			}
			raw = value
		}
		*f.value = raw
		resolved[f.name] = strings.TrimSpace(raw)
	}
	return resolved, nil
}

func missingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var names []string
	for _, name := range lo.Uniq(required) {
		name = strings.TrimSpace(name)
		if name != "" && resolved[name] == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)
	return &MissingSecretsError{names: slices.Compact(names)}
}

// secretRef normalises secret references to the secret:// scheme.
func secretRef(value string) (string, bool) {
	if rest, ok := strings.CutPrefix(value, legacySecretScheme); ok {
		return secretScheme + rest, true
	}
	return value, strings.HasPrefix(value, secretScheme)
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}
