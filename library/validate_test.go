package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberValidation(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)

	tests := []struct {
		name   string
		member Member
		field  string
	}{
		{"blank name", Member{Name: "  ", Email: "a@example.com"}, "name"},
		{"email without domain", Member{Name: "A", Email: "a@"}, "email"},
		{"email without at", Member{Name: "A", Email: "example.com"}, "email"},
		{"missing email", Member{Name: "A"}, "email"},
		{"unknown tier", Member{Name: "A", Email: "a@example.com", MembershipType: "Gold"}, "membership_type"},
		{"unknown status", Member{Name: "A", Email: "a@example.com", Status: "Banned"}, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.member
			_, err := db.AddMember(ctx, &m)
			require.ErrorIs(t, err, ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	n, err := db.TotalMembers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateMemberValidation(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	id := addMember(t, db, "Alice", "alice@example.com", MembershipBasic)

	m, err := db.GetMember(ctx, id)
	require.NoError(t, err)
	m.Email = "alice@"
	require.ErrorIs(t, db.UpdateMember(ctx, m), ErrInvalidArgument)

	stored, err := db.GetMember(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", stored.Email)
}

func TestBookValidationMessages(t *testing.T) {
	err := validateBook(&Book{Title: " ", Author: "A", PublicationYear: -5})
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "title is required")
	assert.Contains(t, err.Error(), "publication_year must be >= 0")

	b := &Book{Title: "  Dune ", Author: " Frank Herbert ", TotalCopies: 2}
	require.NoError(t, validateBook(b))
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "Frank Herbert", b.Author)
}
