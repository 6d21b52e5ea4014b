// Package seed loads a YAML description of semesters, people and meetings
// into the database. It is used to stand up development and demo instances.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixture is the top-level document of a seed file.
type Fixture struct {
	Semesters   []Semester   `yaml:"semesters"`
	Users       []User       `yaml:"users"`
	SmallGroups []SmallGroup `yaml:"small_groups"`
	Meetings    []Meeting    `yaml:"meetings"`
}

type Semester struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	StartsOn time.Time `yaml:"starts_on"`
	EndsOn   time.Time `yaml:"ends_on"`
}

// User creates a user and, optionally, an API key and enrollments for it.
type User struct {
	ID          string       `yaml:"id"`
	Email       string       `yaml:"email"`
	RCSID       string       `yaml:"rcs_id"`
	FirstName   string       `yaml:"first_name"`
	LastName    string       `yaml:"last_name"`
	DisplayName string       `yaml:"display_name"`
	Role        string       `yaml:"role"`
	APIKey      string       `yaml:"api_key"`
	Enrollments []Enrollment `yaml:"enrollments"`
}

type Enrollment struct {
	Semester       string `yaml:"semester"`
	Coordinator    bool   `yaml:"coordinator"`
	FacultyAdvisor bool   `yaml:"faculty_advisor"`
	ProjectLead    bool   `yaml:"project_lead"`
}

type SmallGroup struct {
	ID       string   `yaml:"id"`
	Semester string   `yaml:"semester"`
	Title    string   `yaml:"title"`
	Location string   `yaml:"location"`
	Mentors  []string `yaml:"mentors"`
	Members  []string `yaml:"members"`
}

// Meeting is scheduled either at an absolute StartsAt or StartsIn relative
// to the time the fixture is applied. Duration defaults to one hour.
type Meeting struct {
	ID         string     `yaml:"id"`
	Semester   string     `yaml:"semester"`
	Name       string     `yaml:"name"`
	Type       string     `yaml:"type"`
	Location   string     `yaml:"location"`
	Host       string     `yaml:"host"`
	SmallGroup string     `yaml:"small_group"`
	Published  *bool      `yaml:"published"`
	StartsAt   *time.Time `yaml:"starts_at"`
	StartsIn   string     `yaml:"starts_in"`
	Duration   string     `yaml:"duration"`
}

// Load reads and decodes a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture document. Unknown keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

func (m Meeting) window(now time.Time) (time.Time, time.Time, error) {
	length := time.Hour
	if m.Duration != "" {
		d, err := time.ParseDuration(m.Duration)
		if err != nil || d <= 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("meeting %q: invalid duration %q", m.ID, m.Duration)
		}
		length = d
	}

	var start time.Time
	switch {
	case m.StartsAt != nil:
		start = *m.StartsAt
	case m.StartsIn != "":
		d, err := time.ParseDuration(m.StartsIn)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("meeting %q: invalid starts_in %q", m.ID, m.StartsIn)
		}
		start = now.Add(d)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("meeting %q: starts_at or starts_in is required", m.ID)
	}
	return start, start.Add(length), nil
}
