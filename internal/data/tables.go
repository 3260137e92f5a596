// Package data holds the static era, country and event tables. The tables
// are YAML files embedded in the binary and parsed once on first use.
package data

import (
	"embed"
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/alt-history/internal/game"
)

//go:embed tables/*.yaml
var tablesFS embed.FS

const dateLayout = "2006-01-02"

type eraSpec struct {
	Name         string                  `yaml:"name"`
	Start        string                  `yaml:"start"`
	End          string                  `yaml:"end"`
	Technologies []techSpec              `yaml:"technologies"`
	AICountries  map[string]aiNationSpec `yaml:"ai_countries"`
}

type techSpec struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Cost        float64            `yaml:"cost"`
	Description string             `yaml:"description"`
	Effects     map[string]float64 `yaml:"effects"`
}

type aiNationSpec struct {
	Personality string  `yaml:"personality"`
	Strength    float64 `yaml:"strength"`
}

type countrySpec struct {
	Resources struct {
		Treasury float64 `yaml:"treasury"`
		Income   float64 `yaml:"income"`
		Expenses float64 `yaml:"expenses"`
		GDP      float64 `yaml:"gdp"`
	} `yaml:"resources"`
	Military struct {
		Army      int  `yaml:"army"`
		Navy      int  `yaml:"navy"`
		AirForce  int  `yaml:"air_force"`
		Readiness int  `yaml:"readiness"`
		Mobilized bool `yaml:"mobilized"`
	} `yaml:"military"`
	ResearchRate  float64        `yaml:"research_rate"`
	Relationships map[string]int `yaml:"relationships"`
}

type eventSpec struct {
	ID          string       `yaml:"id"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Date        string       `yaml:"date"`
	Countries   []string     `yaml:"countries"`
	Choices     []choiceSpec `yaml:"choices"`
}

type choiceSpec struct {
	ID           string `yaml:"id"`
	Text         string `yaml:"text"`
	Consequences struct {
		Treasury      *float64       `yaml:"treasury"`
		Morale        *int           `yaml:"morale"`
		Relationships map[string]int `yaml:"relationships"`
		Military      *struct {
			Army      int   `yaml:"army"`
			Navy      int   `yaml:"navy"`
			AirForce  int   `yaml:"air_force"`
			Mobilized *bool `yaml:"mobilized"`
		} `yaml:"military"`
	} `yaml:"consequences"`
}

// Tables is the parsed, read-only content set. It satisfies game.Catalog.
type Tables struct {
	eraOrder  []string
	eras      map[string]game.EraData
	countries map[string]map[string]game.CountryData
	events    map[string][]game.Event
}

var (
	defaultTables *Tables
	defaultOnce   sync.Once
	defaultErr    error
)

// Default returns the embedded tables, parsing them on first call.
func Default() (*Tables, error) {
	defaultOnce.Do(func() {
		read := func(name string) []byte {
			if defaultErr != nil {
				return nil
			}
			b, err := tablesFS.ReadFile("tables/" + name)
			if err != nil {
				defaultErr = fmt.Errorf("read %s: %w", name, err)
			}
			return b
		}
		eras, countries, events := read("eras.yaml"), read("countries.yaml"), read("events.yaml")
		if defaultErr != nil {
			return
		}
		defaultTables, defaultErr = Parse(eras, countries, events)
	})
	return defaultTables, defaultErr
}

// MustDefault is Default for callers that treat broken embedded data as fatal.
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Parse builds tables from raw YAML documents and validates them.
func Parse(erasYAML, countriesYAML, eventsYAML []byte) (*Tables, error) {
	var eraSpecs []eraSpec
	if err := yaml.Unmarshal(erasYAML, &eraSpecs); err != nil {
		return nil, fmt.Errorf("parse eras: %w", err)
	}
	var countrySpecs map[string]map[string]countrySpec
	if err := yaml.Unmarshal(countriesYAML, &countrySpecs); err != nil {
		return nil, fmt.Errorf("parse countries: %w", err)
	}
	var eventSpecs map[string][]eventSpec
	if err := yaml.Unmarshal(eventsYAML, &eventSpecs); err != nil {
		return nil, fmt.Errorf("parse events: %w", err)
	}

	t := &Tables{
		eras:      make(map[string]game.EraData, len(eraSpecs)),
		countries: make(map[string]map[string]game.CountryData, len(countrySpecs)),
		events:    make(map[string][]game.Event, len(eventSpecs)),
	}

	for _, es := range eraSpecs {
		era, err := es.build()
		if err != nil {
			return nil, err
		}
		if _, dup := t.eras[era.Name]; dup {
			return nil, fmt.Errorf("era %q defined twice", era.Name)
		}
		t.eras[era.Name] = era
		t.eraOrder = append(t.eraOrder, era.Name)
	}

	for eraName, byCountry := range countrySpecs {
		if _, ok := t.eras[eraName]; !ok {
			return nil, fmt.Errorf("countries: unknown era %q", eraName)
		}
		out := make(map[string]game.CountryData, len(byCountry))
		for name, cs := range byCountry {
			c, err := cs.build()
			if err != nil {
				return nil, fmt.Errorf("country %s/%s: %w", eraName, name, err)
			}
			out[name] = c
		}
		t.countries[eraName] = out
	}

	for eraName, specs := range eventSpecs {
		if _, ok := t.eras[eraName]; !ok {
			return nil, fmt.Errorf("events: unknown era %q", eraName)
		}
		seen := make(map[string]bool, len(specs))
		evs := make([]game.Event, 0, len(specs))
		for _, spec := range specs {
			ev, err := spec.build()
			if err != nil {
				return nil, fmt.Errorf("event %s/%s: %w", eraName, spec.ID, err)
			}
			if seen[ev.ID] {
				return nil, fmt.Errorf("event %s/%s: duplicate id", eraName, ev.ID)
			}
			seen[ev.ID] = true
			evs = append(evs, ev)
		}
		sort.SliceStable(evs, func(i, j int) bool {
			if !evs[i].Date.Equal(evs[j].Date) {
				return evs[i].Date.Before(evs[j].Date)
			}
			return evs[i].ID < evs[j].ID
		})
		t.events[eraName] = evs
	}
	return t, nil
}

// Era looks up an era by name.
func (t *Tables) Era(name string) (game.EraData, bool) {
	e, ok := t.eras[name]
	return e, ok
}

// Country looks up a playable nation's starting record.
func (t *Tables) Country(era, country string) (game.CountryData, bool) {
	c, ok := t.countries[era][country]
	return c, ok
}

// Events returns the era's events ordered by date then id.
func (t *Tables) Events(era string) []game.Event {
	return t.events[era]
}

// Eras returns era names in table order.
func (t *Tables) Eras() []string {
	return append([]string(nil), t.eraOrder...)
}

// Countries returns the playable nations of an era, sorted.
func (t *Tables) Countries(era string) []string {
	names := make([]string, 0, len(t.countries[era]))
	for name := range t.countries[era] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return d, nil
}

func (es eraSpec) build() (game.EraData, error) {
	if es.Name == "" {
		return game.EraData{}, fmt.Errorf("era: missing name")
	}
	start, err := parseDate(es.Start)
	if err != nil {
		return game.EraData{}, fmt.Errorf("era %s start: %w", es.Name, err)
	}
	end, err := parseDate(es.End)
	if err != nil {
		return game.EraData{}, fmt.Errorf("era %s end: %w", es.Name, err)
	}
	if !end.After(start) {
		return game.EraData{}, fmt.Errorf("era %s: end before start", es.Name)
	}

	era := game.EraData{
		Name:        es.Name,
		StartDate:   start,
		EndDate:     end,
		AICountries: make(map[string]game.AINation, len(es.AICountries)),
	}
	for _, ts := range es.Technologies {
		if ts.ID == "" || ts.Cost <= 0 {
			return game.EraData{}, fmt.Errorf("era %s: invalid technology %q", es.Name, ts.ID)
		}
		era.Technologies = append(era.Technologies, game.Technology{
			ID:          ts.ID,
			Name:        ts.Name,
			Description: ts.Description,
			Cost:        ts.Cost,
			Effects:     ts.Effects,
		})
	}
	for name, ns := range es.AICountries {
		p := game.Personality(ns.Personality)
		switch p {
		case game.Aggressive, game.Defensive, game.Opportunistic:
		default:
			return game.EraData{}, fmt.Errorf("era %s: %s has unknown personality %q", es.Name, name, ns.Personality)
		}
		if ns.Strength < 0 || ns.Strength > 100 {
			return game.EraData{}, fmt.Errorf("era %s: %s strength %v out of range", es.Name, name, ns.Strength)
		}
		era.AICountries[name] = game.AINation{Personality: p, Strength: ns.Strength}
	}
	return era, nil
}

func (cs countrySpec) build() (game.CountryData, error) {
	if cs.Resources.Treasury < 0 {
		return game.CountryData{}, fmt.Errorf("negative treasury")
	}
	if cs.Military.Readiness < 0 || cs.Military.Readiness > 100 {
		return game.CountryData{}, fmt.Errorf("readiness %d out of range", cs.Military.Readiness)
	}
	for other, score := range cs.Relationships {
		if score < game.MinRelationship || score > game.MaxRelationship {
			return game.CountryData{}, fmt.Errorf("relationship with %s out of range", other)
		}
	}
	return game.CountryData{
		Resources: game.Resources{
			Treasury: cs.Resources.Treasury,
			Income:   cs.Resources.Income,
			Expenses: cs.Resources.Expenses,
			GDP:      cs.Resources.GDP,
		},
		Military: game.Military{
			Army:        cs.Military.Army,
			Navy:        cs.Military.Navy,
			AirForce:    cs.Military.AirForce,
			Readiness:   cs.Military.Readiness,
			IsMobilized: cs.Military.Mobilized,
		},
		ResearchRate:         cs.ResearchRate,
		InitialRelationships: cs.Relationships,
	}, nil
}

func (es eventSpec) build() (game.Event, error) {
	if es.ID == "" {
		return game.Event{}, fmt.Errorf("missing id")
	}
	if len(es.Choices) == 0 {
		return game.Event{}, fmt.Errorf("no choices")
	}
	date, err := parseDate(es.Date)
	if err != nil {
		return game.Event{}, err
	}
	ev := game.Event{
		ID:          es.ID,
		Title:       es.Title,
		Description: es.Description,
		Date:        date,
		TriggerConditions: game.TriggerConditions{
			Date:      date,
			Countries: es.Countries,
		},
	}
	for _, cs := range es.Choices {
		if cs.ID == "" {
			return game.Event{}, fmt.Errorf("choice missing id")
		}
		c := game.Choice{ID: cs.ID, Text: cs.Text}
		c.Consequences.Treasury = cs.Consequences.Treasury
		c.Consequences.Morale = cs.Consequences.Morale
		c.Consequences.Relationships = cs.Consequences.Relationships
		if m := cs.Consequences.Military; m != nil {
			c.Consequences.Military = &game.MilitaryDelta{
				Army:        m.Army,
				Navy:        m.Navy,
				AirForce:    m.AirForce,
				IsMobilized: m.Mobilized,
			}
		}
		ev.Choices = append(ev.Choices, c)
	}
	return ev, nil
}
