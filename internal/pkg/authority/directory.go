package authority

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trashmap/trashmap-api/app/models"
)

// Directory maps jurisdiction keys ("region_subregion" or "region") to the
// responsible authority. It is immutable after loading.
type Directory struct {
	defaultContact models.AuthorityContact
	contacts       map[string]models.AuthorityContact
}

type directoryFile struct {
	Default  models.AuthorityContact            `yaml:"default"`
	Contacts map[string]models.AuthorityContact `yaml:"contacts"`
}

// LoadDirectory reads the YAML contact directory at path.
func LoadDirectory(path string) (*Directory, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("resolve authority file %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read authority file: %w", err)
	}
	return ParseDirectory(data)
}

// ParseDirectory decodes a YAML contact directory. A default contact is required.
func ParseDirectory(data []byte) (*Directory, error) {
	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse authority directory: %w", err)
	}
	if strings.TrimSpace(f.Default.Name) == "" {
		return nil, errors.New("authority directory has no default contact")
	}

	d := &Directory{
		defaultContact: f.Default,
		contacts:       make(map[string]models.AuthorityContact, len(f.Contacts)),
	}
	for key, contact := range f.Contacts {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		d.contacts[key] = contact
	}
	return d, nil
}

// NewDirectory builds a directory in code.
func NewDirectory(defaultContact models.AuthorityContact, contacts map[string]models.AuthorityContact) *Directory {
	d := &Directory{defaultContact: defaultContact, contacts: make(map[string]models.AuthorityContact, len(contacts))}
	for k, v := range contacts {
		d.contacts[strings.TrimSpace(k)] = v
	}
	return d
}

// Default is the contact used when nothing more specific matches.
func (d *Directory) Default() models.AuthorityContact {
	return d.defaultContact
}

// Len is the number of keyed contacts.
func (d *Directory) Len() int {
	return len(d.contacts)
}

// ContactFor applies the lookup tiers: region_subregion, then region, then default.
func (d *Directory) ContactFor(j *models.Jurisdiction) models.AuthorityContact {
	if j == nil {
		return d.defaultContact
	}
	region := strings.TrimSpace(j.Region)
	sub := strings.TrimSpace(j.Subregion)
	if region != "" && sub != "" {
		if c, ok := d.contacts[region+"_"+sub]; ok {
			return c
		}
	}
	if region != "" {
		if c, ok := d.contacts[region]; ok {
			return c
		}
	}
	return d.defaultContact
}
