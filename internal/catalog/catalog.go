// Package catalog holds the read-only challenge, badge and topic definitions.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog wraps every construction failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is immutable once built; accessors return copies.
type Catalog struct {
	challenges []Challenge
	badges     []Badge
	topics     []Topic

	challengeByID map[string]int
	badgeByID     map[string]int
	topicByID     map[string]int
}

// New validates the definitions and indexes them by id.
func New(challenges []Challenge, badges []Badge, topics []Topic) (*Catalog, error) {
	c := &Catalog{
		challenges:    append([]Challenge(nil), challenges...),
		badges:        append([]Badge(nil), badges...),
		topics:        append([]Topic(nil), topics...),
		challengeByID: make(map[string]int, len(challenges)),
		badgeByID:     make(map[string]int, len(badges)),
		topicByID:     make(map[string]int, len(topics)),
	}

	for i, ch := range c.challenges {
		if strings.TrimSpace(ch.ID) == "" {
			return nil, fmt.Errorf("%w: challenge %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.challengeByID[ch.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate challenge id %q", ErrInvalidCatalog, ch.ID)
		}
		if ch.Points < 0 {
			return nil, fmt.Errorf("%w: challenge %q has negative points", ErrInvalidCatalog, ch.ID)
		}
		if !ch.Category.Valid() {
			return nil, fmt.Errorf("%w: challenge %q has unknown category %q", ErrInvalidCatalog, ch.ID, ch.Category)
		}
		c.challengeByID[ch.ID] = i
	}

	for i, b := range c.badges {
		if strings.TrimSpace(b.ID) == "" {
			return nil, fmt.Errorf("%w: badge %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.badgeByID[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate badge id %q", ErrInvalidCatalog, b.ID)
		}
		if err := b.Rule.validate(); err != nil {
			return nil, fmt.Errorf("%w: badge %q: %v", ErrInvalidCatalog, b.ID, err)
		}
		c.badgeByID[b.ID] = i
	}

	for i, tp := range c.topics {
		if strings.TrimSpace(tp.ID) == "" || strings.TrimSpace(tp.Title) == "" {
			return nil, fmt.Errorf("%w: topic %d needs an id and a title", ErrInvalidCatalog, i)
		}
		if _, dup := c.topicByID[tp.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate topic id %q", ErrInvalidCatalog, tp.ID)
		}
		c.topicByID[tp.ID] = i
	}

	return c, nil
}

type fileFormat struct {
	Challenges []Challenge `yaml:"challenges"`
	Badges     []Badge     `yaml:"badges"`
	Topics     []Topic     `yaml:"topics"`
}

// Parse builds a catalog from a YAML document.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(f.Challenges, f.Badges, f.Topics)
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Challenges returns every challenge in definition order.
func (c *Catalog) Challenges() []Challenge {
	return append([]Challenge(nil), c.challenges...)
}

// Badges returns every badge in definition order.
func (c *Catalog) Badges() []Badge {
	return append([]Badge(nil), c.badges...)
}

// Topics returns every learning topic in definition order.
func (c *Catalog) Topics() []Topic {
	return append([]Topic(nil), c.topics...)
}

// Challenge looks up a challenge by id.
func (c *Catalog) Challenge(id string) (Challenge, bool) {
	i, ok := c.challengeByID[id]
	if !ok {
		return Challenge{}, false
	}
	return c.challenges[i], true
}

// Badge looks up a badge by id.
func (c *Catalog) Badge(id string) (Badge, bool) {
	i, ok := c.badgeByID[id]
	if !ok {
		return Badge{}, false
	}
	return c.badges[i], true
}

// Topic looks up a topic by id.
func (c *Catalog) Topic(id string) (Topic, bool) {
	i, ok := c.topicByID[id]
	if !ok {
		return Topic{}, false
	}
	return c.topics[i], true
}
