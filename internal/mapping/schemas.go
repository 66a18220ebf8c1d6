// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package mapping

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Leads maps the legacy CRM "leads" table. Positions 0, 12 and 13 (legacy
// id and two unused columns) are not carried over.
var Leads = &Schema{
	Name:        "leads",
	Label:       "Leads",
	SourceTable: "leads",
	DestTable:   "leads",
	MinColumns:  18,
	Fields: []Field{
		{Name: "name", Source: 3, Rule: RuleText, MaxLen: 255},
		{Name: "phone", Source: 4, Rule: RulePhone},
		{Name: "email", Source: 5, Rule: RuleText, MaxLen: 255},
		{Name: "lead_origin", Source: 2, Rule: RuleEnum, Table: LeadOrigins},
		{Name: "date_created", Source: 1, Rule: RuleDate, Required: true},
		{Name: "next_followup_date", Source: 6, Rule: RuleDate},
		{Name: "remarks", Source: 7, Rule: RuleEnum, Table: LeadStatuses},
		{Name: "assigned_to", Source: 8, Rule: RuleEnum, Table: Assignees},
		{Name: "project_amount", Source: 11, Rule: RuleDecimal},
		{Name: "notes", Source: 9, Rule: RuleText},
		{Name: "additional_notes", Source: 10, Rule: RuleText},
		{Name: "deposit_paid", Source: 14, Rule: RuleFlag},
		{Name: "balance_paid", Source: 15, Rule: RuleFlag},
		{Name: "installation_date", Source: 16, Rule: RuleDate},
		{Name: "assigned_installer", Source: 17, Rule: RuleEnum, Table: Installers},
	},
}

// SampleBooklets maps the legacy "sample_booklets" order table.
var SampleBooklets = &Schema{
	Name:        "sample_booklets",
	Label:       "Sample booklets",
	SourceTable: "sample_booklets",
	DestTable:   "sample_booklets",
	MinColumns:  12,
	Fields: []Field{
		{Name: "order_number", Source: 1, Rule: RuleText, MaxLen: 100},
		{Name: "customer_name", Source: 2, Rule: RuleText, MaxLen: 255},
		{Name: "address", Source: 3, Rule: RuleText},
		{Name: "email", Source: 4, Rule: RuleText, MaxLen: 255},
		{Name: "phone", Source: 5, Rule: RulePhone},
		{Name: "product_type", Source: 6, Rule: RuleEnum, Table: ProductTypes},
		{Name: "tracking_number", Source: 7, Rule: RuleOptionalText, MaxLen: 100},
		{Name: "status", Source: 8, Rule: RuleEnum, Table: BookletStatuses},
		{Name: "date_ordered", Source: 9, Rule: RuleDate, Required: true},
		{Name: "date_shipped", Source: 10, Rule: RuleDate},
		{Name: "notes", Source: 11, Rule: RuleText},
	},
}

// Registry holds the schemas a run can select by name.
type Registry struct {
	schemas map[string]*Schema
	order   []string
}

// NewRegistry validates and registers schemas. Later schemas replace earlier
// ones with the same name.
func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[string]*Schema)}
	for _, s := range schemas {
		if err := r.Add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry holds the built-in schemas.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Leads, SampleBooklets)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Add(s *Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, ok := r.schemas[s.Name]; !ok {
		r.order = append(r.order, s.Name)
	}
	r.schemas[s.Name] = s
	return nil
}

func (r *Registry) Get(name string) (*Schema, error) {
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown table %q (available: %v)", name, r.order)
	}
	return s, nil
}

// Names lists registered schemas in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

type schemaFile struct {
	Schemas []schemaDoc `yaml:"schemas"`
}

type schemaDoc struct {
	Name        string     `yaml:"name"`
	Label       string     `yaml:"label"`
	SourceTable string     `yaml:"source_table"`
	DestTable   string     `yaml:"dest_table"`
	MinColumns  int        `yaml:"min_columns"`
	Fields      []fieldDoc `yaml:"fields"`
}

type fieldDoc struct {
	Name       string `yaml:"name"`
	Source     int    `yaml:"source"`
	Rule       string `yaml:"rule"`
	Vocabulary string `yaml:"vocabulary"`
	MaxLen     int    `yaml:"max_len"`
	Required   bool   `yaml:"required"`
}

// ParseSchemas reads schema declarations from the "schemas" key of a YAML
// document. Other keys are ignored, so the migration config file can carry
// them. Source and destination tables default to the schema name.
func ParseSchemas(data []byte) ([]*Schema, error) {
	var doc schemaFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema declarations: %w", err)
	}

	schemas := make([]*Schema, 0, len(doc.Schemas))
	for _, sd := range doc.Schemas {
		s := &Schema{
			Name:        sd.Name,
			Label:       sd.Label,
			SourceTable: sd.SourceTable,
			DestTable:   sd.DestTable,
			MinColumns:  sd.MinColumns,
		}
		if s.SourceTable == "" {
			s.SourceTable = s.Name
		}
		if s.DestTable == "" {
			s.DestTable = s.Name
		}
		for _, fd := range sd.Fields {
			rule, err := ParseRule(fd.Rule)
			if fd.Rule == "" {
				rule, err = RuleText, nil
			}
			if err != nil {
				return nil, fmt.Errorf("schema %s column %s: %w", sd.Name, fd.Name, err)
			}
			f := Field{
				Name:     fd.Name,
				Source:   fd.Source,
				Rule:     rule,
				MaxLen:   fd.MaxLen,
				Required: fd.Required,
			}
			if fd.Vocabulary != "" {
				t, ok := Vocabulary(fd.Vocabulary)
				if !ok {
					return nil, fmt.Errorf("schema %s column %s: unknown vocabulary %q (available: %v)",
						sd.Name, fd.Name, fd.Vocabulary, VocabularyNames())
				}
				f.Table = t
			}
			s.Fields = append(s.Fields, f)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}
