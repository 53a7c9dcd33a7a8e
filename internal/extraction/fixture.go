package extraction

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/vcms/internal/model"
)

// FixtureFile is the on-disk layout of a fixture extraction file.
type FixtureFile struct {
	Cards []FixtureCard `yaml:"cards"`
}

// FixtureCard maps an image URL to a canned candidate, or to an error to
// simulate a provider failure.
type FixtureCard struct {
	URL       string                    `yaml:"url"`
	Candidate model.ExtractionCandidate `yaml:"candidate"`
	Error     string                    `yaml:"error"`
}

// FixtureExtractor answers from a fixed set of cards. It is used for local
// runs and demos without an API key.
type FixtureExtractor struct {
	cards map[string]FixtureCard
}

// NewFixtureExtractor builds an extractor from in-memory cards.
func NewFixtureExtractor(cards []FixtureCard) *FixtureExtractor {
	m := make(map[string]FixtureCard, len(cards))
	for _, c := range cards {
		m[c.URL] = c
	}
	return &FixtureExtractor{cards: m}
}

// LoadFixtures reads a YAML fixture file.
func LoadFixtures(path string) (*FixtureExtractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extraction: read fixtures %s", path)
	}
	var f FixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "extraction: parse fixtures %s", path)
	}
	for i, c := range f.Cards {
		if c.URL == "" {
			return nil, eris.Errorf("extraction: fixture %d has no url", i)
		}
		if c.Error == "" && !c.Candidate.Status.Valid() {
			return nil, eris.Errorf("extraction: fixture %s has invalid status %q", c.URL, c.Candidate.Status)
		}
	}
	return NewFixtureExtractor(f.Cards), nil
}

// Extract implements Service.
func (f *FixtureExtractor) Extract(ctx context.Context, imageURL string) (*model.ExtractionCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	card, ok := f.cards[imageURL]
	if !ok {
		return nil, eris.Wrapf(ErrUnreadable, "no fixture for %s", imageURL)
	}
	if card.Error != "" {
		return nil, eris.New(card.Error)
	}
	c := card.Candidate
	return &c, nil
}
