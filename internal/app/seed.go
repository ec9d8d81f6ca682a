package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Adda-Baaj/newsclip/internal/domain"
	"github.com/Adda-Baaj/newsclip/internal/textutil"
)

// SourceSeed is one entry of a sources import file.
type SourceSeed struct {
	Name          string `yaml:"name"`
	URL           string `yaml:"url"`
	Kind          string `yaml:"kind"`
	Active        *bool  `yaml:"active"`
	TitleSelector string `yaml:"title_selector"`
	LinkSelector  string `yaml:"link_selector"`
	DateSelector  string `yaml:"date_selector"`
}

// ClientSeed is one entry of a clients import file. Keywords may be a list
// or a single comma separated string.
type ClientSeed struct {
	Name      string            `yaml:"name"`
	Keywords  keywordList       `yaml:"keywords"`
	Domains   []string          `yaml:"domains"`
	Operators map[string]string `yaml:"operators"`
}

type keywordList []string

func (k *keywordList) UnmarshalYAML(node *yaml.Node) error {
	var list []string
	if node.Kind == yaml.ScalarNode {
		list = textutil.SplitKeywords(node.Value)
	} else if err := node.Decode(&list); err != nil {
		return err
	}
	out := make([]string, 0, len(list))
	for _, kw := range list {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	*k = out
	return nil
}

// SourceWriter persists sources.
type SourceWriter interface {
	UpsertSource(ctx context.Context, s domain.Source) (domain.Source, bool, error)
}

// ClientWriter persists clients.
type ClientWriter interface {
	UpsertClient(ctx context.Context, c domain.Client) (domain.Client, error)
}

// ImportResult counts what an import did.
type ImportResult struct {
	Created int
	Updated int
}

// ImportSources upserts every source in r, keyed by URL. Running it twice is a no-op.
func ImportSources(ctx context.Context, w SourceWriter, r io.Reader) (ImportResult, error) {
	var file struct {
		Sources []SourceSeed `yaml:"sources"`
	}
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return ImportResult{}, fmt.Errorf("decode sources: %w", err)
	}

	var res ImportResult
	for i, seed := range file.Sources {
		src, err := seed.toSource()
		if err != nil {
			return res, fmt.Errorf("sources[%d]: %w", i, err)
		}
		_, created, err := w.UpsertSource(ctx, src)
		if err != nil {
			return res, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

func (s SourceSeed) toSource() (domain.Source, error) {
	name := strings.TrimSpace(s.Name)
	link := strings.TrimSpace(s.URL)
	if name == "" || link == "" {
		return domain.Source{}, fmt.Errorf("name and url are required")
	}
	kind, err := domain.ParseSourceKind(s.Kind)
	if err != nil {
		return domain.Source{}, err
	}
	return domain.Source{
		Name:          name,
		URL:           link,
		Kind:          kind,
		Active:        s.Active == nil || *s.Active,
		TitleSelector: strings.TrimSpace(s.TitleSelector),
		LinkSelector:  strings.TrimSpace(s.LinkSelector),
		DateSelector:  strings.TrimSpace(s.DateSelector),
	}, nil
}

// ImportClients upserts every client in r, keyed by name.
func ImportClients(ctx context.Context, w ClientWriter, r io.Reader) (int, error) {
	var file struct {
		Clients []ClientSeed `yaml:"clients"`
	}
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return 0, fmt.Errorf("decode clients: %w", err)
	}

	for i, seed := range file.Clients {
		if strings.TrimSpace(seed.Name) == "" {
			return i, fmt.Errorf("clients[%d]: name is required", i)
		}
		_, err := w.UpsertClient(ctx, domain.Client{
			Name:      seed.Name,
			Keywords:  seed.Keywords,
			Domains:   seed.Domains,
			Operators: seed.Operators,
		})
		if err != nil {
			return i, fmt.Errorf("clients[%d]: %w", i, err)
		}
	}
	return len(file.Clients), nil
}
