// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netSkope/dump-migration-tool/internal/sqldump"
)

func TestTable_LookupLabel(t *testing.T) {
	tests := []struct {
		table *Table
		label string
		want  string
	}{
		{LeadStatuses, "Sold", "sold"},
		{LeadStatuses, "sold", "sold"},
		{LeadStatuses, "  SOLD ", "sold"},
		{LeadStatuses, "In Progress", "in-progress"},
		{LeadStatuses, "in_progress", "in-progress"},
		{LeadStatuses, "Quoted", "quoted"},
		{LeadStatuses, "Lost", "new"},
		{LeadStatuses, "", "new"},
		{LeadOrigins, "Google Text", "google"},
		{LeadOrigins, "Trade Show", "trade-show"},
		{LeadOrigins, "Walk In", "walk-in"},
		{LeadOrigins, "TikTok", "tiktok"},
		{LeadOrigins, "Billboard", "website"},
		{Assignees, "Kim", "kim"},
		{Assignees, "Somebody", Unassigned},
		{Installers, "LUIS", "luis"},
		{ProductTypes, "Demo Kit and Sample Booklet", "demo_kit_and_sample_booklet"},
		{ProductTypes, "trial kit", "trial_kit"},
		{ProductTypes, "Trial-Kit", "trial_kit"},
		{ProductTypes, "Catalog", "sample_booklet_only"},
		{BookletStatuses, "Delivered", "delivered"},
		{BookletStatuses, "null", "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.table.Name()+"/"+tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.table.LookupLabel(tt.label))
		})
	}
}

// Every input, whatever its kind, maps into the table's vocabulary.
func TestTable_LookupIsClosed(t *testing.T) {
	inputs := []sqldump.Value{
		sqldump.Null(),
		sqldump.Number(1, "1"),
		sqldump.Number(-2.5, "-2.5"),
		sqldump.String(""),
		sqldump.String("NULL"),
		sqldump.String("Sold"),
		sqldump.String("sold "),
		sqldump.String("not--interested"),
		sqldump.String("___"),
		sqldump.String("ünïcödé"),
		sqldump.String("'; DROP TABLE leads; --"),
		sqldump.String("\x00\n\t"),
	}

	for _, name := range VocabularyNames() {
		table, ok := Vocabulary(name)
		require.True(t, ok, name)
		for _, v := range inputs {
			got := table.Lookup(v)
			assert.Truef(t, table.Contains(got), "%s.Lookup(%v) = %q is not a member", name, v, got)
		}
		for _, label := range table.Members() {
			assert.Equalf(t, label, table.LookupLabel(label), "%s: member %q must map to itself", name, label)
		}
	}
}

func TestTable_LookupNullIsDefault(t *testing.T) {
	assert.Equal(t, "website", LeadOrigins.Lookup(sqldump.Null()))
	assert.Equal(t, "new", LeadStatuses.Lookup(sqldump.Null()))
	assert.Equal(t, Unassigned, Assignees.Lookup(sqldump.Null()))
}

func TestNewTable_Validation(t *testing.T) {
	_, err := NewTable("t", "missing", []string{"a"}, nil)
	assert.Error(t, err)

	_, err = NewTable("t", "a", []string{"a"}, map[string]string{"B": "b"})
	assert.Error(t, err)

	assert.Panics(t, func() {
		MustTable("t", "z", []string{"a"}, nil)
	})
}
