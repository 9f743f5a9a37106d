package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/docsauth/pkg/cryptox"
)

// Load reads a YAML catalog from path. Plaintext secrets and passwords are
// hashed on load.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(raw))
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes a YAML catalog from r. Unknown fields are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	if err := c.hashPlaintext(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Marshal encodes c as YAML. Only hashes are written.
func Marshal(c *Catalog) ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Catalog) hashPlaintext() error {
	for i := range c.Resources {
		hashSecrets(c.Resources[i].Secrets)
	}
	for i := range c.Clients {
		hashSecrets(c.Clients[i].Secrets)
	}
	for i := range c.Users {
		u := &c.Users[i]
		if u.Password == "" || cryptox.IsPasswordHash(u.Password) {
			continue
		}
		hash, err := cryptox.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("catalog: hash password for %q: %w", u.Username, err)
		}
		u.Password = hash
	}
	return nil
}

func hashSecrets(secrets []Secret) {
	for i := range secrets {
		if secrets[i].Plain != "" {
			secrets[i].Value = cryptox.HashSecret(secrets[i].Plain)
			secrets[i].Plain = ""
		}
	}
}
