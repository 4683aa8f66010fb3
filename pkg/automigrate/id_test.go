package automigrate_test

import (
	"testing"
	"time"

	"github.com/pseudomuto/automigrate/pkg/automigrate"
	"github.com/pseudomuto/automigrate/pkg/diff"
	"github.com/pseudomuto/automigrate/pkg/schema"
	"github.com/stretchr/testify/require"
)

func TestNextMigrationID(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 999, time.UTC)

	tests := []struct {
		name    string
		now     time.Time
		applied []string
		want    string
	}{
		{name: "no history", now: now, want: "20250102030405_auto"},
		{name: "local time", now: now.In(time.FixedZone("EST", -5*3600)), want: "20250102030405_auto"},
		{name: "older history", now: now, applied: []string{"20240101000000_auto", "001_init"}, want: "20250102030405_auto"},
		{name: "same second", now: now, applied: []string{"20250102030405_auto"}, want: "20250102030406_auto"},
		{name: "clock behind", now: now, applied: []string{"20300101000000_auto", "20250102030405_auto"}, want: "20300101000001_auto"},
		{name: "hand migration ids", now: now, applied: []string{"20260101000000_add_users"}, want: "20260101000001_auto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, automigrate.NextMigrationID(tt.now, tt.applied))
		})
	}
}

func TestModelDiffer(t *testing.T) {
	prior := model(t, "CREATE TABLE users (id BIGINT PRIMARY KEY); INSERT INTO users (id) VALUES (1);")
	desired := model(t, "CREATE TABLE users (id BIGINT PRIMARY KEY, age INT); INSERT INTO users (id) VALUES (2);")

	ops := automigrate.ModelDiffer{}.Diff(prior, desired)
	require.Len(t, ops, 1)
	require.Equal(t, diff.AddColumn, ops[0].Kind)

	ops = automigrate.ModelDiffer{}.Diff(nil, desired)
	require.Len(t, ops, 1)
	require.Equal(t, diff.CreateTable, ops[0].Kind)

	called := false
	differ := automigrate.DifferFunc(func(_, _ *schema.Model) []diff.Operation {
		called = true
		return nil
	})
	require.Empty(t, differ.Diff(nil, desired))
	require.True(t, called)
}
