package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleTable_Lookup(t *testing.T) {
	table := DefaultRoleTable()
	tests := []struct {
		role Role
		want Page
	}{
		{RoleReader, PageReaderDashboard},
		{RoleAuthor, PageAuthorDashboard},
		{RoleWriter, PageAuthorDashboard},
		{RoleArtist, PageArtistDashboard},
		{RoleAdmin, PageAdminDashboard},
		{RoleStudent, PageReaderDashboard},
		{RoleProfessional, PageReaderDashboard},
		{"", PageReaderDashboard},
		{"sculptor", PageReaderDashboard},
		{"Admin", PageReaderDashboard},
		{"ARTIST", PageReaderDashboard},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, table.Lookup(tt.role))
			assert.Equal(t, tt.want, table.Lookup(tt.role), "lookup must be deterministic")
		})
	}
}

func TestRoleTable_ZeroValueFallsBackToReader(t *testing.T) {
	var table RoleTable
	assert.Equal(t, PageReaderDashboard, table.Lookup(RoleAdmin))
}
