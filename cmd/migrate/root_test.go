package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubMigrate(t *testing.T, err error) *[]string {
	t.Helper()
	var calls []string
	orig := migrateFunc
	migrateFunc = func(dsn, direction string) error {
		calls = append(calls, dsn+" "+direction)
		return err
	}
	t.Cleanup(func() { migrateFunc = orig })
	return &calls
}

func execute(getenv func(string) string, args ...string) (string, error) {
	cmd := newRootCmd(getenv)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func noEnv(string) string { return "" }

func TestMigrateCommands(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		env        map[string]string
		wantCall   string
		wantErr    bool
		migrateErr error
	}{
		{
			name:     "up uses DATABASE_URL",
			args:     []string{"up"},
			env:      map[string]string{"DATABASE_URL": "postgres://env"},
			wantCall: "postgres://env up",
		},
		{
			name:     "flag overrides environment",
			args:     []string{"down", "--database-url", "postgres://flag"},
			env:      map[string]string{"DATABASE_URL": "postgres://env"},
			wantCall: "postgres://flag down",
		},
		{
			name:    "missing url is an error",
			args:    []string{"up"},
			wantErr: true,
		},
		{
			name:       "migration failure is returned",
			args:       []string{"up"},
			env:        map[string]string{"DATABASE_URL": "postgres://env"},
			wantCall:   "postgres://env up",
			wantErr:    true,
			migrateErr: errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := stubMigrate(t, tt.migrateErr)
			getenv := noEnv
			if tt.env != nil {
				getenv = func(k string) string { return tt.env[k] }
			}

			out, err := execute(getenv, tt.args...)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Contains(t, out, "Migrations completed successfully")
			}
			if tt.wantCall == "" {
				assert.Empty(t, *calls)
			} else {
				assert.Equal(t, []string{tt.wantCall}, *calls)
			}
		})
	}
}

func TestMigrateRejectsExtraArgs(t *testing.T) {
	calls := stubMigrate(t, nil)
	_, err := execute(noEnv, "up", "extra")
	require.Error(t, err)
	assert.Empty(t, *calls)
}
